package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPromptTemplate(t *testing.T) {
	testCases := []struct {
		name      string
		template  string
		variables []string
		wantErr   bool
	}{
		{"single variable", "Write me advice for the {{.topic}}", []string{"topic"}, false},
		{"repeated placeholder", "{{.topic}} and again {{.topic}}", []string{"topic"}, false},
		{"chat history undeclared", "{{.chat_history}}\nHuman: {{.topic}}", []string{"topic"}, false},
		{"placeholder inside if", "{{if .entity}}top 5 {{.entity}}{{end}}", []string{"entity"}, false},
		{"undeclared placeholder", "Hello {{.name}} from {{.place}}", []string{"name"}, true},
		{"unused declaration", "Hello {{.name}}", []string{"name", "place"}, true},
		{"empty variable name", "Hello", []string{""}, true},
		{"parse error", "Hello, {{.name}! Missing closing brace", []string{"name"}, true},
		{"root variable reference", "Advice for {{$.topic}}", []string{"topic"}, false},
		{"root reference inside with", "{{with .chat_history}}{{.}}\n{{end}}Human: {{$.topic}}", []string{"topic"}, false},
		{"with else keeps root dot", "{{with .entity}}among {{.}}{{else}}about {{.topic}}{{end}}", []string{"entity", "topic"}, false},
		{"field inside with", "{{with .chat_history}}{{.topic}}{{end}}", []string{"topic"}, true},
		{"field inside range", "{{range .items}}{{.name}}{{end}}", []string{"items", "name"}, true},
		{"field of a value", "{{.topic.name}}", []string{"topic"}, true},
		{"field of a root value", "{{$.topic.name}}", []string{"topic"}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pt, err := NewPromptTemplate(tc.name, tc.template, tc.variables)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTemplate))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.template, pt.Template)
		})
	}
}

func TestPromptTemplateRender(t *testing.T) {
	pt, err := NewPromptTemplate("greeting", "Hello, {{.Name}}! Welcome to {{.Place}}.", []string{"Place", "Name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Place"}, pt.Variables())
	assert.False(t, pt.UsesChatHistory())

	t.Run("all values", func(t *testing.T) {
		out, err := pt.Render(map[string]string{"Name": "Alice", "Place": "Wonderland", "extra": "ignored"})
		require.NoError(t, err)
		assert.Equal(t, "Hello, Alice! Welcome to Wonderland.", out)
	})

	t.Run("empty value substitutes as empty", func(t *testing.T) {
		out, err := pt.Render(map[string]string{"Name": "", "Place": "Wonderland"})
		require.NoError(t, err)
		assert.Equal(t, "Hello, ! Welcome to Wonderland.", out)
	})

	t.Run("missing value", func(t *testing.T) {
		_, err := pt.Render(map[string]string{"Name": "Bob"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingVariable))

		var mv *MissingVariableError
		require.True(t, errors.As(err, &mv))
		assert.Equal(t, []string{"Place"}, mv.Variables)
	})
}

func TestPromptTemplateChatHistory(t *testing.T) {
	pt, err := NewPromptTemplate("lane", "{{.chat_history}}|{{.topic}}", []string{"topic"})
	require.NoError(t, err)
	assert.True(t, pt.UsesChatHistory())

	out, err := pt.Render(map[string]string{"topic": "bonds"})
	require.NoError(t, err)
	assert.Equal(t, "|bonds", out, "absent history renders empty")

	out, err = pt.Render(map[string]string{"topic": "bonds", ChatHistoryKey: "Human: a\nAI: b"})
	require.NoError(t, err)
	assert.Equal(t, "Human: a\nAI: b|bonds", out)
}

func TestPromptTemplateRenderIsPure(t *testing.T) {
	pt, err := NewPromptTemplate("pure", "{{.topic}}", []string{"topic"})
	require.NoError(t, err)

	values := map[string]string{"topic": "401Ks"}
	first, err := pt.Render(values)
	require.NoError(t, err)
	second, err := pt.Render(values)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, map[string]string{"topic": "401Ks"}, values)
}

func TestPromptTemplateScopedRender(t *testing.T) {
	pt, err := NewPromptTemplate("scoped", "{{with .entity}}among {{.}}{{else}}about {{$.topic}}{{end}}", []string{"entity", "topic"})
	require.NoError(t, err)
	assert.False(t, pt.UsesChatHistory())

	out, err := pt.Render(map[string]string{"entity": "ETFs", "topic": "bonds"})
	require.NoError(t, err)
	assert.Equal(t, "among ETFs", out)

	out, err = pt.Render(map[string]string{"entity": "", "topic": "bonds"})
	require.NoError(t, err)
	assert.Equal(t, "about bonds", out)
}
