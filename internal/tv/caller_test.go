package tv

import "testing"

func TestParsePermissions(t *testing.T) {
	got, err := ParsePermissions([]string{"all-epg-data", " watched-programs "})
	if err != nil {
		t.Fatalf("ParsePermissions() error = %v", err)
	}
	if got != PermAllEPGData|PermWatchedPrograms {
		t.Errorf("ParsePermissions() = %v, want all-epg-data,watched-programs", got)
	}

	if _, err := ParsePermissions([]string{"root"}); err == nil {
		t.Error("ParsePermissions(unknown) expected error, got nil")
	}
}

func TestPermission_String(t *testing.T) {
	p := PermWatchedPrograms | PermAllEPGData | PermReadTVListings
	if got, want := p.String(), "all-epg-data,read-tv-listings,watched-programs"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := Permission(0).String(); got != "" {
		t.Errorf("String() of empty set = %q, want empty", got)
	}
}

func TestCaller_Has(t *testing.T) {
	c := NewCaller("com.example", PermReadTVListings, PermModifyParentalControls)

	if !c.Has(PermReadTVListings) {
		t.Error("Has(read-tv-listings) = false, want true")
	}
	if c.Has(PermAllEPGData) {
		t.Error("Has(all-epg-data) = true, want false")
	}
	if c.Has(PermReadTVListings | PermAllEPGData) {
		t.Error("Has(combined) = true, want false when one flag is missing")
	}
	if got, want := c.String(), "com.example[modify-parental-controls,read-tv-listings]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
