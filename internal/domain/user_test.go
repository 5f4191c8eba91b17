package domain

import (
	"encoding/json"
	"testing"
)

func TestUser_JSONNeverCarriesPasswordHash(t *testing.T) {
	tests := []struct {
		name string
		user User
	}{
		{"with hash", User{BaseModel: BaseModel{ID: 4}, Name: "Samir Alaoui", Email: "samir@bank.example", PasswordHash: "$2a$10$abcdef"}},
		{"without hash", User{Name: "Nadia", Email: "nadia@bank.example"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.user)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var fields map[string]any
			if err := json.Unmarshal(b, &fields); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			for _, key := range []string{"passwordHash", "password_hash", "PasswordHash"} {
				if _, ok := fields[key]; ok {
					t.Fatalf("json has %q: %s", key, b)
				}
			}
			for _, key := range []string{"id", "name", "email", "createdAt"} {
				if _, ok := fields[key]; !ok {
					t.Fatalf("json lacks %q: %s", key, b)
				}
			}
		})
	}
}

func TestUser_DecodeIgnoresPasswordHash(t *testing.T) {
	input := `{"name":"Samir Alaoui","email":"samir@bank.example","passwordHash":"x","PasswordHash":"y"}`

	var u User
	if err := json.Unmarshal([]byte(input), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if u.PasswordHash != "" {
		t.Fatalf("PasswordHash = %q, want empty", u.PasswordHash)
	}
	if u.Name != "Samir Alaoui" || u.Email != "samir@bank.example" {
		t.Fatalf("decoded %+v", u)
	}
}
