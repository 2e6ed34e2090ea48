// Package assets provides the summarization prompt and the HTML page
// template a processor runs with.
//
// Assets live in two families, each under its own directory:
//
//	{dir}/
//	├── prompts/
//	│   └── {name}.txt           # prompt with a {$file_content} placeholder
//	└── templates/
//	    └── {name}.html          # page with a {{CONTENT}} placeholder
//
// A Library stacks an optional override directory on top of the builtin set.
// Lookups try the override first and fall back only when the asset is absent
// there; read failures and invalid names are returned as is. The override
// directory is opened with os.OpenRoot, so names and symlinks cannot reach
// outside of it.
package assets
