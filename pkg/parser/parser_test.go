package parser

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/codeconnect/pkg/util"
)

const connectTSX = `import figma from '@figma/code-connect'
import { Button } from './Button'

figma.connect(Button, 'https://www.figma.com/file/abc?node-id=1-2', {
  props: { label: figma.string('Label') },
  example: ({ label }) => <Button>{label}</Button>,
})
`

const connectHTML = "import figma, { html } from '@figma/code-connect/html'\n\n" +
	"figma.connect('https://www.figma.com/file/abc?node-id=1-2', {\n" +
	"  example: () => html`<ds-button></ds-button>`,\n})\n"

func newTestManager(t *testing.T) *ParserManager {
	t.Helper()
	manager := NewParserManager(util.NewDiscardLogger())
	t.Cleanup(func() { manager.Close() })
	return manager
}

func TestParse_Grammars(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		lang     Language
		isTSX    bool
		contains string
	}{
		{"tsx example function", connectTSX, LanguageTypeScript, true, "jsx_element"},
		{"ts tagged template", connectHTML, LanguageTypeScript, false, "template_string"},
		{"jsx in javascript", "const a = <div className='x' />", LanguageJavaScript, false, "jsx_self_closing_element"},
		{"typescript types", "interface Props { size?: 'sm' | 'lg' }", LanguageTypeScript, false, "interface_declaration"},
	}

	manager := newTestManager(t)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tree, err := manager.Parse([]byte(tc.source), tc.lang, tc.isTSX)
			require.NoError(t, err)
			defer tree.Close()

			root := tree.RootNode()
			assert.Equal(t, "program", root.Kind())
			assert.False(t, root.HasError())
			assert.Contains(t, root.ToSexp(), tc.contains)
		})
	}
}

func TestParseFile_DetectsGrammar(t *testing.T) {
	manager := newTestManager(t)

	tree, err := manager.ParseFile([]byte(connectTSX), "Button.figma.tsx")
	require.NoError(t, err)
	defer tree.Close()
	assert.False(t, tree.RootNode().HasError())

	_, err = manager.ParseFile([]byte("x"), "Button.figma.swift")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file extension")
}

func TestParse_UnknownLanguage(t *testing.T) {
	manager := newTestManager(t)

	_, err := manager.Parse([]byte("x"), LanguageUnknown, false)
	require.Error(t, err)
}

func TestParse_PartialTreesAreReturned(t *testing.T) {
	manager := newTestManager(t)

	tree, err := manager.Parse([]byte("figma.connect(Button, {"), LanguageTypeScript, false)
	require.NoError(t, err)
	defer tree.Close()

	assert.True(t, tree.RootNode().HasError())
	assert.Equal(t, 1, manager.GetStats().PartialTrees)
}

func TestParse_LazyPools(t *testing.T) {
	manager := newTestManager(t)
	assert.Equal(t, 0, manager.GetStats().ParsersCreated)

	for i := 0; i < 3; i++ {
		tree, err := manager.Parse([]byte("const x = 1"), LanguageJavaScript, true)
		require.NoError(t, err)
		tree.Close()
	}

	stats := manager.GetStats()
	assert.Equal(t, 1, stats.ParsersCreated, "sequential parses reuse one parser")
	assert.Equal(t, 3, stats.ParsesCalled)
}

func TestParse_Concurrent(t *testing.T) {
	manager := newTestManager(t)

	const goroutines = 64
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			isTSX := i%2 == 0
			src := connectHTML
			if isTSX {
				src = connectTSX
			}
			tree, err := manager.Parse([]byte(src), LanguageTypeScript, isTSX)
			if err != nil {
				errs <- err
				return
			}
			tree.Close()
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	stats := manager.GetStats()
	assert.LessOrEqual(t, stats.ParsersCreated, 2*getDefaultPoolSize())
	assert.Equal(t, goroutines, stats.ParsesCalled)
}

func TestLanguageForFile(t *testing.T) {
	tests := []struct {
		path  string
		lang  Language
		isTSX bool
	}{
		{"src/Button.figma.tsx", LanguageTypeScript, true},
		{"src/Button.figma.ts", LanguageTypeScript, false},
		{"src/types.d.ts", LanguageTypeScript, false},
		{"src/Button.figma.jsx", LanguageJavaScript, false},
		{"src/Button.stories.js", LanguageJavaScript, false},
		{"Button.swift", LanguageUnknown, false},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			lang, isTSX := LanguageForFile(tc.path)
			assert.Equal(t, tc.lang, lang)
			assert.Equal(t, tc.isTSX, isTSX)
		})
	}
}

func TestLanguageString(t *testing.T) {
	assert.Equal(t, "unknown", LanguageUnknown.String())
}
