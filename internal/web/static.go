package web

import "embed"

// staticFiles is the kiosk page (index.html, app.js, style.css) compiled
// into the binary so the booth runs from a single file.
//
//go:embed static/*
var staticFiles embed.FS
