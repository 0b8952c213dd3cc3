// Package describe produces a short natural-language description of an
// image using Gemini. The description is shown next to detection verdicts and
// has no influence on them.
package describe
