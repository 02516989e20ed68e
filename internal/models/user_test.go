package models

import (
	"testing"
)

func TestUser_Validate(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		wantErr bool
	}{
		{
			name:    "Valid user",
			user:    User{Name: "Justin"},
			wantErr: false,
		},
		{
			name:    "Underscore allowed",
			user:    User{Name: "test_user"},
			wantErr: false,
		},
		{
			name:    "Empty username",
			user:    User{Name: ""},
			wantErr: true,
		},
		{
			name:    "Username too short",
			user:    User{Name: "A"},
			wantErr: true,
		},
		{
			name:    "Username too long",
			user:    User{Name: "ThisIsAVeryLongUsernameThatExceedsTheMaximumAllowedLength"},
			wantErr: true,
		},
		{
			name:    "Username with spaces",
			user:    User{Name: "two words"},
			wantErr: true,
		},
		{
			name:    "Username with markup",
			user:    User{Name: "<b>bold</b>"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("User.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
