package router

import (
	"testing"

	"github.com/Iron-Ham/feedview/internal/errors"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/", "/"},
		{"", "/"},
		{"news", "/news"},
		{"/news/", "/news"},
		{"/news?page=2", "/news"},
		{"/news#top", "/news"},
		{"/a/../live", "/live"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTable_Resolve(t *testing.T) {
	table, err := NewTable([]Route{{Path: "/", ViewID: "home"}, {Path: "/news", ViewID: "news"}}, "/")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path      string
		wantPath  string
		wantView  string
		wantFound bool
	}{
		{"/news", "/news", "news", true},
		{"/news/", "/news", "news", true},
		{"/", "/", "home", true},
		{"/nowhere", "/", "home", false},
		{"/news/extra", "/", "home", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			route, found := table.Resolve(tt.path)
			if route.Path != tt.wantPath || route.ViewID != tt.wantView || found != tt.wantFound {
				t.Errorf("Resolve(%q) = %+v, %v", tt.path, route, found)
			}
		})
	}

	if d := table.Default(); d.ViewID != "home" {
		t.Errorf("Default() = %+v", d)
	}
	if n := len(table.Routes()); n != 2 {
		t.Errorf("Routes() len = %d", n)
	}
}

func TestNewTable_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		routes []Route
		def    string
	}{
		{"duplicate", []Route{{"/", "home"}, {"/", "other"}}, "/"},
		{"empty view", []Route{{"/", ""}}, "/"},
		{"default missing", []Route{{"/", "home"}}, "/news"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTable(tt.routes, tt.def); !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("NewTable() error = %v", err)
			}
		})
	}
}
