package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPhoneNumber(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "already E.164",
			input: "+14155552671",
			want:  "+14155552671",
		},
		{
			name:  "bare number gets plus prefix",
			input: "14155552671",
			want:  "+14155552671",
		},
		{
			name:  "separators are stripped",
			input: "+1 (415) 555-2671",
			want:  "+14155552671",
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "leading zero",
			input:   "+04155552671",
			wantErr: true,
		},
		{
			name:    "too long",
			input:   "+1234567890123456",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phone, err := NewPhoneNumber(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, phone.E164())
		})
	}
}

func TestNewPhoneNumberE164(t *testing.T) {
	_, err := NewPhoneNumberE164("14155552671")
	require.Error(t, err)

	phone, err := NewPhoneNumberE164("+33123456789")
	require.NoError(t, err)
	assert.Equal(t, "+33123456789", phone.String())
}
