package helper

import (
	"fmt"
	"regexp"
	"strings"

	"go.mau.fi/whatsmeow/types"
)

// MinPhoneDigits batas minimal digit supaya nomor dianggap layak dikirim.
// Di bawah ini kontak langsung ditandai invalid_number tanpa menyentuh transport.
const MinPhoneDigits = 8

var (
	validFormatRe = regexp.MustCompile(`^[\d\s\+\-\(\)]+$`)
	nonDigitRe    = regexp.MustCompile(`[^\d]`)
)

// CleanPhoneNumber buang semua karakter kecuali digit.
func CleanPhoneNumber(phone string) string {
	return nonDigitRe.ReplaceAllString(phone, "")
}

// IsSendablePhone cek minimal: format karakter valid dan jumlah digit cukup.
func IsSendablePhone(phone string) bool {
	if strings.TrimSpace(phone) == "" || !validFormatRe.MatchString(phone) {
		return false
	}
	return len(CleanPhoneNumber(phone)) >= MinPhoneDigits
}

// FormatPhoneNumber converts phone number to WhatsApp JID format.
// Prefix 0 diganti countryCode kalau di-set (config DEFAULT_COUNTRY_CODE, misal "62").
func FormatPhoneNumber(phone, countryCode string) (types.JID, error) {
	if !validFormatRe.MatchString(phone) {
		return types.JID{}, fmt.Errorf("invalid phone number format: contains invalid characters")
	}

	cleaned := CleanPhoneNumber(phone)

	if len(cleaned) < MinPhoneDigits {
		return types.JID{}, fmt.Errorf("phone number too short")
	}

	// Auto-convert 0xxx → <cc>xxx
	if countryCode != "" && strings.HasPrefix(cleaned, "0") {
		cleaned = countryCode + cleaned[1:]
	}

	// E.164 maksimal 15 digit
	if len(cleaned) > 15 {
		return types.JID{}, fmt.Errorf("invalid phone number length")
	}

	return types.JID{
		User:   cleaned,
		Server: types.DefaultUserServer,
	}, nil
}

func ExtractPhoneFromJID(jid string) string {
	// "6285148107612:43@s.whatsapp.net" -> "6285148107612"
	atSplit := strings.SplitN(jid, "@", 2)
	if len(atSplit) == 0 {
		return jid
	}
	beforeAt := atSplit[0]
	colonSplit := strings.SplitN(beforeAt, ":", 2)
	return colonSplit[0]
}
