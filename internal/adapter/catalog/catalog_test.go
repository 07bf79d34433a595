package catalog

import (
	"io"
	"log/slog"
	"testing"

	"github.com/jgivc/emojifetch/internal/common"
	"github.com/jgivc/emojifetch/internal/entity"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestCatalogLoad(t *testing.T) {
	testCases := []struct {
		name          string
		path          string
		content       string
		expectError   error
		expectEntries []*entity.Entry
	}{
		{
			name: "json keeps file order",
			path: "apple_emojis.json",
			content: `{
  "zebra": {"name": "Zebra", "image": "https://cdn.example.com/z.png"},
  "apple": {"image": "https://cdn.example.com/a.webp?size=72", "unicode": "U+1F34E"},
  "blank": {"name": "Blank"},
  "nil_image": {"name": "Nil", "image": null}
}`,
			expectEntries: []*entity.Entry{
				{Key: "zebra", Name: "Zebra", Image: "https://cdn.example.com/z.png"},
				{Key: "apple", Image: "https://cdn.example.com/a.webp?size=72"},
				{Key: "blank", Name: "Blank"},
				{Key: "nil_image", Name: "Nil"},
			},
		},
		{
			name:          "json empty object",
			path:          "empty.json",
			content:       `{}`,
			expectEntries: nil,
		},
		{
			name:    "json duplicate key keeps first position",
			path:    "dup.json",
			content: `{"a": {"image": "1"}, "b": {"image": "2"}, "a": {"image": "3"}}`,
			expectEntries: []*entity.Entry{
				{Key: "a", Image: "3"},
				{Key: "b", Image: "2"},
			},
		},
		{
			name: "yaml catalog",
			path: "emojis.yml",
			content: `smile:
  name: Smile
  image: https://cdn.example.com/smile.png
frown:
  image: https://cdn.example.com/frown
  extra: ignored
`,
			expectEntries: []*entity.Entry{
				{Key: "smile", Name: "Smile", Image: "https://cdn.example.com/smile.png"},
				{Key: "frown", Image: "https://cdn.example.com/frown"},
			},
		},
		{
			name:        "json not valid",
			path:        "broken.json",
			content:     `{"a": {"image": `,
			expectError: common.ErrCatalogParse,
		},
		{
			name:        "json top level array",
			path:        "list.json",
			content:     `[{"image": "x"}]`,
			expectError: common.ErrCatalogParse,
		},
		{
			name:        "json record is not an object",
			path:        "scalar.json",
			content:     `{"a": "https://cdn.example.com/a.png"}`,
			expectError: common.ErrCatalogParse,
		},
		{
			name:        "json null record",
			path:        "null.json",
			content:     `{"a": null}`,
			expectError: common.ErrCatalogParse,
		},
		{
			name:        "json trailing data",
			path:        "trailing.json",
			content:     `{"a": {}} {"b": {}}`,
			expectError: common.ErrCatalogParse,
		},
		{
			name:        "json wrong field type",
			path:        "types.json",
			content:     `{"a": {"image": 42}}`,
			expectError: common.ErrCatalogParse,
		},
		{
			name:        "yaml record is a list",
			path:        "list.yaml",
			content:     "a:\n  - x\n",
			expectError: common.ErrCatalogParse,
		},
		{
			name:    "yaml null fields",
			path:    "nulls.yaml",
			content: "a:\n  name: ~\n  image: ~\n",
			expectEntries: []*entity.Entry{
				{Key: "a"},
			},
		},
		{
			name:          "yaml empty map",
			path:          "empty.yml",
			content:       "{}\n",
			expectEntries: nil,
		},
		{
			name:        "yaml empty document",
			path:        "blank.yml",
			content:     "# nothing here\n",
			expectError: common.ErrCatalogParse,
		},
		{
			name:        "yaml top level list",
			path:        "top.yml",
			content:     "- a\n- b\n",
			expectError: common.ErrCatalogParse,
		},
		{
			name:        "yaml wrong image type",
			path:        "types.yml",
			content:     "a:\n  image: 42\n",
			expectError: common.ErrCatalogParse,
		},
		{
			name:        "yaml wrong name type",
			path:        "types.yaml",
			content:     "a:\n  name: true\n",
			expectError: common.ErrCatalogParse,
		},
		{
			name:        "yaml null key",
			path:        "nullkey.yml",
			content:     "~:\n  image: https://cdn.example.com/a.png\n",
			expectError: common.ErrCatalogParse,
		},
		{
			name:        "yaml null record",
			path:        "nullrec.yml",
			content:     "a:\n",
			expectError: common.ErrCatalogParse,
		},
		{
			name:        "missing file",
			path:        "missing.json",
			expectError: common.ErrCatalogNotFound,
		},
	}

	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if tc.content != "" {
				require.NoError(t, afero.WriteFile(fs, tc.path, []byte(tc.content), 0644))
			}

			adapter := NewCatalogAdapterWithFS(fs, log)

			catalog, err := adapter.Load(tc.path)
			if tc.expectError != nil {
				require.ErrorIs(t, err, tc.expectError)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.expectEntries, catalog.Entries)
		})
	}
}
