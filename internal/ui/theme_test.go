package ui

import "testing"

func TestGetTheme_UnknownFallsBack(t *testing.T) {
	if got := GetTheme("nope").Name; got != "Nightfox" {
		t.Fatalf("GetTheme(nope) = %q, want Nightfox", got)
	}
	if got := GetTheme("Slate").Name; got != "Slate" {
		t.Fatalf("GetTheme(Slate) = %q, want Slate", got)
	}
}

func TestNextTheme_Cycles(t *testing.T) {
	names := ThemeNames()
	for i, name := range names {
		want := names[(i+1)%len(names)]
		if got := NextTheme(name); got != want {
			t.Fatalf("NextTheme(%q) = %q, want %q", name, got, want)
		}
	}
	if got := NextTheme("unknown"); got != names[0] {
		t.Fatalf("NextTheme(unknown) = %q, want %q", got, names[0])
	}
}

func TestThemeNames_ReturnsCopy(t *testing.T) {
	names := ThemeNames()
	names[0] = "mutated"
	if ThemeNames()[0] == "mutated" {
		t.Fatal("ThemeNames exposed internal slice")
	}
}

func TestThemesDefineBadges(t *testing.T) {
	for _, name := range ThemeNames() {
		th := GetTheme(name)
		for _, badge := range []string{"playing", "paused", "downloaded", "offline", "pending"} {
			if th.BadgeColors[badge] == "" {
				t.Fatalf("theme %s missing badge color %q", name, badge)
			}
		}
	}
}
