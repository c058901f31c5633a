package output

import (
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestStylesDegradeToPlainText(t *testing.T) {
	// A plain writer has no terminal capabilities, so every style
	// renders as the bare text.
	styles := NewStyles(&strings.Builder{})

	assert.Equal(t, "ok", styles.Success("ok"))
	assert.Equal(t, "failed", styles.Error("failed"))
	assert.Equal(t, "careful", styles.Warning("careful"))
	assert.Equal(t, "main.beancount", styles.FilePath("main.beancount"))
	assert.Equal(t, "Assets:Checking", styles.Account("Assets:Checking"))
	assert.Equal(t, "100.00 USD", styles.Amount("100.00 USD"))
	assert.Equal(t, "detail", styles.Dim("detail"))
	assert.Equal(t, "1.2ms", styles.Timing("1.2ms", false))
	assert.Equal(t, "350ms", styles.Timing("350ms", true))
}
