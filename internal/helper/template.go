package helper

import (
	"strings"

	"wablast/internal/model"
)

// RenderTemplate resolve placeholder per kontak. Token yang dikenali:
//
//	{fullName} / {FULLNAME} -> first + last (trimmed), UPPERCASE
//	{firstName} {lastName} {group} -> field apa adanya
//	{key} -> ExtraFields["key"]
//
// Field kosong dan token tidak dikenal dibiarkan verbatim, tidak pernah error.
// Isi pesan dilihat operator langsung, jadi placeholder tidak boleh hilang diam-diam.
func RenderTemplate(template string, contact model.Contact) string {
	result := template

	if full := strings.TrimSpace(contact.FullName()); full != "" {
		upper := strings.ToUpper(full)
		result = strings.ReplaceAll(result, "{fullName}", upper)
		result = strings.ReplaceAll(result, "{FULLNAME}", upper)
	}
	if contact.FirstName != "" {
		result = strings.ReplaceAll(result, "{firstName}", contact.FirstName)
	}
	if contact.LastName != "" {
		result = strings.ReplaceAll(result, "{lastName}", contact.LastName)
	}
	if contact.Group != "" {
		result = strings.ReplaceAll(result, "{group}", contact.Group)
	}
	for key, value := range contact.ExtraFields {
		if value != "" {
			result = strings.ReplaceAll(result, "{"+key+"}", value)
		}
	}

	return result
}
