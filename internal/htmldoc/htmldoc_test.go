package htmldoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightqa/insightqa/internal/domain"
)

const loginPage = `<html><body>
<form id="login-form">
  <input id="username" type="text" placeholder="Username">
  <input name="password" type="password">
  <button class="btn primary">Sign in</button>
  <a href="/reset">Forgot password?</a>
</form>
</body></html>`

func findByTag(t *testing.T, candidates []Candidate, tag string) []Candidate {
	t.Helper()
	var out []Candidate
	for _, c := range candidates {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

func TestParseCandidates_LocatorPreference(t *testing.T) {
	candidates, err := ParseCandidates(loginPage)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)

	inputs := findByTag(t, candidates, "input")
	require.Len(t, inputs, 2)

	// id wins over everything.
	assert.Equal(t, domain.LocatorByID, inputs[0].Strategy)
	assert.Equal(t, "username", inputs[0].Locator)
	assert.Equal(t, "Username", inputs[0].Placeholder)

	// name when no id.
	assert.Equal(t, domain.LocatorByName, inputs[1].Strategy)
	assert.Equal(t, "password", inputs[1].Locator)

	// class-based CSS when neither id nor name.
	buttons := findByTag(t, candidates, "button")
	require.Len(t, buttons, 1)
	assert.Equal(t, domain.LocatorByCSS, buttons[0].Strategy)
	assert.Equal(t, "button.btn.primary", buttons[0].Locator)
	assert.Equal(t, "Sign in", buttons[0].Text)
}

func TestParseCandidates_XPathFallback(t *testing.T) {
	candidates, err := ParseCandidates(`<html><body><a href="/x">bare link</a></body></html>`)
	require.NoError(t, err)

	links := findByTag(t, candidates, "a")
	require.Len(t, links, 1)
	assert.Equal(t, domain.LocatorByXPath, links[0].Strategy)
	assert.Equal(t, "/html[1]/body[1]/a[1]", links[0].Locator)
}

func TestParseCandidates_PositionalPathsDistinguishSiblings(t *testing.T) {
	candidates, err := ParseCandidates(`<html><body><button>one</button><button>two</button></body></html>`)
	require.NoError(t, err)

	buttons := findByTag(t, candidates, "button")
	require.Len(t, buttons, 2)
	assert.Equal(t, "/html[1]/body[1]/button[1]", buttons[0].Locator)
	assert.Equal(t, "/html[1]/body[1]/button[2]", buttons[1].Locator)
}

func TestParseCandidates_SkipsInertElements(t *testing.T) {
	candidates, err := ParseCandidates(`<html><body><div><p>just text</p></div></body></html>`)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestParseCandidates_TextExcludesNestedInteractive(t *testing.T) {
	candidates, err := ParseCandidates(
		`<html><body><form id="f">outer <button id="b">inner</button></form></body></html>`)
	require.NoError(t, err)

	forms := findByTag(t, candidates, "form")
	require.Len(t, forms, 1)
	assert.Equal(t, "outer", forms[0].Text)

	buttons := findByTag(t, candidates, "button")
	require.Len(t, buttons, 1)
	assert.Equal(t, "inner", buttons[0].Text)
}

func TestParseCandidates_DeterministicOrder(t *testing.T) {
	first, err := ParseCandidates(loginPage)
	require.NoError(t, err)
	second, err := ParseCandidates(loginPage)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
