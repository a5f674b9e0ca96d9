package scaffold

const starterConfig = `title: My Site
author: ""
base_url: http://localhost:8080
output: dist
posts_dir: posts
pages_dir: pages
templates_dir: templates
assets_dir: assets
port: 8080
feed:
  enabled: true
`

const starterPost = `---
title: Welcome
date: 2024-01-01
tags: [meta]
---
# Welcome

This is your first post. Edit it, add more files under posts/, and run
the dev server to see changes live:

` + "```" + `
pageforge dev
` + "```" + `
`

const starterStyles = `:root {
  --fg: #1a1a1a;
  --bg: #ffffff;
  --accent: #0055aa;
  --muted: #666666;
}

body {
  color: var(--fg);
  background: var(--bg);
  font-family: system-ui, sans-serif;
  line-height: 1.6;
  max-width: 46rem;
  margin: 0 auto;
  padding: 0 1rem;
}

a { color: var(--accent); }

.meta, .tags { color: var(--muted); font-size: 0.9rem; }

pre {
  background: #f4f4f4;
  padding: 0.75rem;
  overflow-x: auto;
}

.toc { border-left: 3px solid var(--accent); padding-left: 1rem; }
.toc ul { list-style: none; padding-left: 0; }
.toc-3 { padding-left: 1rem; }
.toc-4 { padding-left: 2rem; }
`
