package startup

import (
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.OS == "" || info.Arch == "" {
		t.Errorf("Expected OS/Arch to be set, got %q/%q", info.OS, info.Arch)
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health", "health"},
		{"/api/clips/upload", "api/clips"},
		{"/api/clips/{id}", "api/clips"},
		{"/uploads/thumbnails/", "uploads"},
		{"/", ""},
		{"/api", "api"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := getRouteGroup(tt.path); got != tt.want {
				t.Errorf("getRouteGroup(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestGetRoutes(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/api/clips/{id}", func(http.ResponseWriter, *http.Request) {}).Methods("GET", "DELETE")
	r.PathPrefix("/uploads/thumbnails/").Handler(http.NotFoundHandler())

	routes, err := GetRoutes(r)
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}

	want := []RouteInfo{
		{Method: "GET", Path: "/api/clips/{id}"},
		{Method: "DELETE", Path: "/api/clips/{id}"},
		{Method: "*", Path: "/uploads/thumbnails/"},
	}
	if !reflect.DeepEqual(routes, want) {
		t.Errorf("GetRoutes() = %+v, want %+v", routes, want)
	}
}

func TestCheckBinary(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-ffmpeg")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho 'ffmpeg version 6.1'\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := checkBinary(script); err != nil {
		t.Errorf("checkBinary(%s) error = %v", script, err)
	}
	if err := checkBinary(filepath.Join(dir, "missing")); err == nil {
		t.Error("checkBinary() on missing binary should fail")
	}
}
