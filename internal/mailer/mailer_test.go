package mailer

import (
	"errors"
	"net/smtp"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{
	Host:     "smtp.example.com",
	Port:     "587",
	Username: "site@example.com",
	Password: "secret",
	To:       "owner@example.com",
}

func TestSendComposesMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	m := New(testConfig, zerolog.Nop()).WithSender(func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	})

	err := m.Send(Submission{Name: " Sam ", Email: "sam@example.com", Message: "Hi there"})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "site@example.com", gotFrom)
	assert.Equal(t, []string{"owner@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Portfolio Contact: Sam\r\n")
	assert.Contains(t, string(gotMsg), "Reply-To: sam@example.com\r\n")
	assert.Contains(t, string(gotMsg), "Hi there")
}

func TestSendValidation(t *testing.T) {
	m := New(testConfig, zerolog.Nop()).WithSender(func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("sender must not be called")
		return nil
	})

	tests := map[string]Submission{
		"missing name":    {Email: "a@b.co", Message: "x"},
		"missing message": {Name: "a", Email: "a@b.co"},
		"bad email":       {Name: "a", Email: "not-an-email", Message: "x"},
		"header inject":   {Name: "a\r\nBcc: x@y.z", Email: "a@b.co", Message: "x"},
	}
	for name, s := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, m.Send(s), ErrInvalidInput)
		})
	}
}

func TestSendNotConfigured(t *testing.T) {
	m := New(Config{Host: "h", Port: "25"}, zerolog.Nop())
	err := m.Send(Submission{Name: "a", Email: "a@b.co", Message: "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSendWrapsTransportError(t *testing.T) {
	boom := errors.New("connection refused")
	m := New(testConfig, zerolog.Nop()).WithSender(func(string, smtp.Auth, string, []string, []byte) error {
		return boom
	})
	err := m.Send(Submission{Name: "a", Email: "a@b.co", Message: "x"})
	assert.ErrorIs(t, err, boom)
}
