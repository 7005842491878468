package helper

import "testing"

func TestIsSendablePhone(t *testing.T) {
	cases := []struct {
		phone string
		want  bool
	}{
		{"6285148107612", true},
		{"+62 851-4810-7612", true},
		{"(0851) 4810 7612", true},
		{"123", false},        // di bawah ambang digit
		{"1234567", false},    // tepat satu di bawah ambang
		{"12345678", true},    // tepat di ambang
		{"", false},
		{"   ", false},
		{"abc12345678", false}, // karakter di luar format
	}

	for _, tc := range cases {
		if got := IsSendablePhone(tc.phone); got != tc.want {
			t.Errorf("IsSendablePhone(%q) = %v, want %v", tc.phone, got, tc.want)
		}
	}
}

func TestCleanPhoneNumber(t *testing.T) {
	if got := CleanPhoneNumber("+62 851-4810-7612"); got != "6285148107612" {
		t.Errorf("CleanPhoneNumber = %q, want %q", got, "6285148107612")
	}
}

func TestFormatPhoneNumber(t *testing.T) {
	jid, err := FormatPhoneNumber("+62 851-4810-7612", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if jid.User != "6285148107612" {
		t.Errorf("jid.User = %q, want %q", jid.User, "6285148107612")
	}
	if jid.Server != "s.whatsapp.net" {
		t.Errorf("jid.Server = %q, want %q", jid.Server, "s.whatsapp.net")
	}
}

func TestFormatPhoneNumberCountryCodePrefix(t *testing.T) {
	jid, err := FormatPhoneNumber("085148107612", "62")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if jid.User != "6285148107612" {
		t.Errorf("jid.User = %q, want %q", jid.User, "6285148107612")
	}

	// Tanpa country code, prefix 0 dibiarkan
	jid, err = FormatPhoneNumber("085148107612", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if jid.User != "085148107612" {
		t.Errorf("jid.User = %q, want %q", jid.User, "085148107612")
	}
}

func TestFormatPhoneNumberRejectsBadInput(t *testing.T) {
	for _, phone := range []string{"abc", "123", "1234567890123456789"} {
		if _, err := FormatPhoneNumber(phone, "62"); err == nil {
			t.Errorf("FormatPhoneNumber(%q) expected error, got nil", phone)
		}
	}
}

func TestExtractPhoneFromJID(t *testing.T) {
	cases := []struct {
		jid  string
		want string
	}{
		{"6285148107612:43@s.whatsapp.net", "6285148107612"},
		{"6285148107612@s.whatsapp.net", "6285148107612"},
		{"6285148107612", "6285148107612"},
	}
	for _, tc := range cases {
		if got := ExtractPhoneFromJID(tc.jid); got != tc.want {
			t.Errorf("ExtractPhoneFromJID(%q) = %q, want %q", tc.jid, got, tc.want)
		}
	}
}
