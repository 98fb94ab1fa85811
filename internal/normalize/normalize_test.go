package normalize

import "testing"

func TestURLStripsTrackingAndFragment(t *testing.T) {
	t.Parallel()

	got := URL("https://WWW.championat.com/Some/Path/?utm_source=x&id=5#frag")
	want := "https://championat.com/Some/Path?id=5"
	if got != want {
		t.Fatalf("unexpected normalized URL: %q, want %q", got, want)
	}
	if URL(got) != got {
		t.Fatalf("normalization is not idempotent: %q -> %q", got, URL(got))
	}
}

func TestURLSchemeRelativeAndSubdomain(t *testing.T) {
	t.Parallel()

	got := URL("//stat.championat.com/news/football/1.html")
	if got != "https://championat.com/news/football/1.html" {
		t.Fatalf("unexpected URL: %q", got)
	}
}

func TestURLKeepsNonTrackingParamOrder(t *testing.T) {
	t.Parallel()

	got := URL("https://championat.com/p?b=2&utm_medium=m&a=1")
	if got != "https://championat.com/p?b=2&a=1" {
		t.Fatalf("expected original parameter order, got %q", got)
	}
}

func TestToken(t *testing.T) {
	t.Parallel()

	if got := Token(" A-B_c "); got != "a b c" {
		t.Fatalf("unexpected token: %q", got)
	}
	if got := Token("ЦСКА  Москва"); got != "цска москва" {
		t.Fatalf("unexpected unicode token: %q", got)
	}
	if got := Token("  -  "); got != "" {
		t.Fatalf("expected empty token, got %q", got)
	}
}

func TestToISO(t *testing.T) {
	t.Parallel()

	got, err := ToISO("7 августа 2025", "18:45")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "2025-08-07T18:45:00" {
		t.Fatalf("unexpected ISO value: %q", got)
	}

	got, err = ToISO("1 января 2024", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "2024-01-01T00:00:00" {
		t.Fatalf("expected midnight default, got %q", got)
	}

	if _, err := ToISO("7 auguste 2025", "18:45"); err == nil {
		t.Fatalf("expected unknown month to fail")
	}
}
