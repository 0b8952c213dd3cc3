// Package pipeline runs an image through the analysis steps in sequence.
//
// A typical analysis extracts EXIF metadata, asks one or more vendors for a
// verdict, optionally asks Gemini for a description and stores the result in
// the history database. Each stage is a Step that receives the Job and
// records its outcome in the job's model.Analysis.
//
// Analyzer assembles the usual pipelines for the HTTP server and the CLI.
// BatchProcessor analyzes many files concurrently with errgroup.
package pipeline
