package dom

import (
	"strings"
	"sync/atomic"
	"testing"
)

type recordingSentinel struct {
	states []bool
}

func (r *recordingSentinel) SetVisible(v bool) {
	r.states = append(r.states, v)
}

func (r *recordingSentinel) last() bool {
	return r.states[len(r.states)-1]
}

func TestDocument_ReplaceDeclaresRegions(t *testing.T) {
	d := New()
	d.Replace("Home\n[[feed:home]]\nfooter")

	if d.Region("home") == nil {
		t.Fatal("region home not declared")
	}
	if d.Region("news") != nil {
		t.Error("unexpected region news")
	}
	if d.Content() != "Home\n[[feed:home]]\nfooter" {
		t.Errorf("Content() = %q", d.Content())
	}
	if d.Version() != 1 {
		t.Errorf("Version() = %d", d.Version())
	}
}

func TestDocument_ReplaceDetachesOldRegions(t *testing.T) {
	d := New()
	d.Replace("[[feed:home]]")
	old := d.Region("home")
	s := &recordingSentinel{}
	old.AttachSentinel(s)

	d.Replace("[[feed:home]]")

	if !old.Detached() {
		t.Error("old region should be detached")
	}
	if old.HasSentinel() {
		t.Error("old region kept its sentinel")
	}
	old.Append(Text("late"))
	if old.Len() != 0 {
		t.Error("detached region accepted items")
	}
	if d.Region("home") == old {
		t.Error("Replace should create fresh regions")
	}
}

func TestDocument_RenderInsertsItems(t *testing.T) {
	d := New()
	d.Replace("Title\n[[feed:home]]\nEnd")
	d.Region("home").Append(Text("one"), Text("two\nlines"))

	got := d.Render(80).Text
	want := "Title\none\ntwo\nlines\nEnd"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestLayout_Reveal(t *testing.T) {
	d := New()
	d.Replace("header\n[[feed:home]]\nfooter")
	r := d.Region("home")
	for range 10 {
		r.Append(Text("item"))
	}
	s := &recordingSentinel{}
	r.AttachSentinel(s)

	layout := d.Render(80)
	if layout.Sentinels() != 1 {
		t.Fatalf("Sentinels() = %d", layout.Sentinels())
	}
	// header + 10 items puts the sentinel on line 11, followed by footer.
	tests := []struct {
		name   string
		top    int
		height int
		want   bool
	}{
		{"top of page", 0, 5, false},
		{"sentinel line in window", 8, 5, true},
		{"window past sentinel", 12, 5, false},
		{"window reaches end", 10, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout.Reveal(tt.top, tt.height)
			if got := s.last(); got != tt.want {
				t.Errorf("visible = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDocument_OnChange(t *testing.T) {
	d := New()
	var n atomic.Int32
	d.OnChange(func() { n.Add(1) })

	d.Replace("[[feed:a]]")
	d.Region("a").Append(Text("x"))
	d.Region("a").Set(Text("y"))
	d.Announce("Navigated to home")
	d.SetTitle("Home")

	if n.Load() != 5 {
		t.Errorf("OnChange calls = %d, want 5", n.Load())
	}
	if d.Announcement() != "Navigated to home" || d.Title() != "Home" {
		t.Errorf("announcement=%q title=%q", d.Announcement(), d.Title())
	}
	if !strings.Contains(d.Render(10).Text, "y") {
		t.Error("Set did not replace items")
	}
}

func TestRegion_DetachSentinelOnlyRemovesOwn(t *testing.T) {
	d := New()
	d.Replace("[[feed:a]]")
	r := d.Region("a")
	s1, s2 := &recordingSentinel{}, &recordingSentinel{}

	r.AttachSentinel(s1)
	r.DetachSentinel(s2)
	if !r.HasSentinel() {
		t.Error("detaching a foreign sentinel removed the attached one")
	}
	r.DetachSentinel(s1)
	if r.HasSentinel() {
		t.Error("sentinel still attached")
	}
}
