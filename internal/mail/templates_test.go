package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRegistrationEscapesHTML(t *testing.T) {
	msg, err := RenderRegistration(Registration{Name: "<b>Eve</b>", Username: "eve", Email: "eve@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "eve@example.com", msg.To)
	assert.Equal(t, registrationSubject, msg.Subject)
	assert.Contains(t, msg.TextBody, "<b>Eve</b>")
	assert.Contains(t, msg.HTMLBody, "&lt;b&gt;Eve&lt;/b&gt;")
	assert.True(t, strings.Contains(msg.HTMLBody, "<strong>eve</strong>"))
}
