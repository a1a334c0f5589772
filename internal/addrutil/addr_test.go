package addrutil

import "testing"

func TestBaseURL_BareIPDefaultsToHTTPS(t *testing.T) {
	got, err := BaseURL("10.213.50.130")
	if err != nil {
		t.Fatalf("BaseURL: %v", err)
	}
	if got != "https://10.213.50.130" {
		t.Fatalf("got=%q", got)
	}
}

func TestBaseURL_KeepsSchemeAndPortDropsSlash(t *testing.T) {
	got, err := BaseURL("http://cc.example.net:8080/")
	if err != nil {
		t.Fatalf("BaseURL: %v", err)
	}
	if got != "http://cc.example.net:8080" {
		t.Fatalf("got=%q", got)
	}
}

func TestBaseURL_HostPort(t *testing.T) {
	got, err := BaseURL("cc.example.net:8443")
	if err != nil {
		t.Fatalf("BaseURL: %v", err)
	}
	if got != "https://cc.example.net:8443" {
		t.Fatalf("got=%q", got)
	}
}

func TestBaseURL_UnbracketedIPv6(t *testing.T) {
	got, err := BaseURL("2001:db8::1")
	if err != nil {
		t.Fatalf("BaseURL: %v", err)
	}
	if got != "https://[2001:db8::1]" {
		t.Fatalf("got=%q", got)
	}
	if h := Host(got); h != "2001:db8::1" {
		t.Fatalf("host=%q", h)
	}
}

func TestBaseURL_Rejects(t *testing.T) {
	for _, in := range []string{"", "  ", "ftp://cc.example.net"} {
		if _, err := BaseURL(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}
