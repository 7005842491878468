package helper

import (
	"testing"

	"wablast/internal/model"
)

func TestRenderTemplate(t *testing.T) {
	cases := []struct {
		name     string
		template string
		contact  model.Contact
		want     string
	}{
		{
			name:     "full name uppercased with group",
			template: "Hola {fullName}, grupo {group}",
			contact:  model.Contact{FirstName: "Ana", LastName: "Ruiz", Group: "29"},
			want:     "Hola ANA RUIZ, grupo 29",
		},
		{
			name:     "uppercase spelling resolves the same",
			template: "Hola {FULLNAME}",
			contact:  model.Contact{FirstName: "Ana", LastName: "Ruiz"},
			want:     "Hola ANA RUIZ",
		},
		{
			name:     "missing last name uses first name only",
			template: "Hi {fullName}",
			contact:  model.Contact{FirstName: "Ana"},
			want:     "Hi ANA",
		},
		{
			name:     "first and last name keep original case",
			template: "{firstName} {lastName}",
			contact:  model.Contact{FirstName: "Ana", LastName: "Ruiz"},
			want:     "Ana Ruiz",
		},
		{
			name:     "unknown token left verbatim",
			template: "Hi {nickname}",
			contact:  model.Contact{FirstName: "Ana"},
			want:     "Hi {nickname}",
		},
		{
			name:     "empty field leaves token verbatim",
			template: "grupo {group}",
			contact:  model.Contact{FirstName: "Ana"},
			want:     "grupo {group}",
		},
		{
			name:     "extra fields resolve by key",
			template: "Kode promo: {promoCode}",
			contact: model.Contact{
				FirstName:   "Ana",
				ExtraFields: map[string]string{"promoCode": "WA2025"},
			},
			want: "Kode promo: WA2025",
		},
		{
			name:     "no tokens passes through untouched",
			template: "Pesan statis tanpa token",
			contact:  model.Contact{FirstName: "Ana"},
			want:     "Pesan statis tanpa token",
		},
		{
			name:     "repeated token replaced everywhere",
			template: "{firstName}, iya {firstName}",
			contact:  model.Contact{FirstName: "Budi"},
			want:     "Budi, iya Budi",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RenderTemplate(tc.template, tc.contact)
			if got != tc.want {
				t.Errorf("RenderTemplate(%q) = %q, want %q", tc.template, got, tc.want)
			}
		})
	}
}
