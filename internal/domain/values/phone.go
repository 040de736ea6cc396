package values

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// PhoneNumber represents a validated phone number value object
type PhoneNumber struct {
	number string // Stored in E.164 format (+1234567890)
}

// E.164 format regex: + followed by up to 15 digits
var e164Regex = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// NewPhoneNumber creates a new PhoneNumber value object with validation.
// Bare national numbers are normalized by prefixing "+" before validation,
// matching what the bulk importer's data feed requires.
func NewPhoneNumber(number string) (PhoneNumber, error) {
	if number == "" {
		return PhoneNumber{}, fmt.Errorf("phone number cannot be empty")
	}

	cleaned := cleanPhoneNumber(number)
	if !strings.HasPrefix(cleaned, "+") {
		cleaned = "+" + cleaned
	}

	if !e164Regex.MatchString(cleaned) {
		return PhoneNumber{}, fmt.Errorf("invalid phone number format: %s", number)
	}

	return PhoneNumber{number: cleaned}, nil
}

// NewPhoneNumberE164 creates a PhoneNumber from E.164 format with strict validation
func NewPhoneNumberE164(number string) (PhoneNumber, error) {
	if !e164Regex.MatchString(number) {
		return PhoneNumber{}, fmt.Errorf("invalid E.164 format: %s", number)
	}

	return PhoneNumber{number: number}, nil
}

// MustNewPhoneNumber creates PhoneNumber and panics on error (for constants/tests)
func MustNewPhoneNumber(number string) PhoneNumber {
	phone, err := NewPhoneNumber(number)
	if err != nil {
		panic(err)
	}
	return phone
}

// String returns the phone number in E.164 format
func (p PhoneNumber) String() string {
	return p.number
}

// E164 returns the phone number in E.164 format (alias for String)
func (p PhoneNumber) E164() string {
	return p.number
}

// IsEmpty checks if the phone number is empty
func (p PhoneNumber) IsEmpty() bool {
	return p.number == ""
}

// Equal checks if two PhoneNumber values are equal
func (p PhoneNumber) Equal(other PhoneNumber) bool {
	return p.number == other.number
}

// MarshalJSON implements JSON marshaling
func (p PhoneNumber) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.number)
}

// UnmarshalJSON implements JSON unmarshaling
func (p *PhoneNumber) UnmarshalJSON(data []byte) error {
	var number string
	if err := json.Unmarshal(data, &number); err != nil {
		return err
	}

	phone, err := NewPhoneNumber(number)
	if err != nil {
		return err
	}

	*p = phone
	return nil
}

func cleanPhoneNumber(number string) string {
	// Keep digits and a leading +
	cleaned := strings.Builder{}
	for i, char := range number {
		if char >= '0' && char <= '9' || char == '+' && i == 0 {
			cleaned.WriteRune(char)
		}
	}
	return cleaned.String()
}
