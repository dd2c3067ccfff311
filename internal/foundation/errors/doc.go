// Package errors classifies sitebuilder failures so the CLI can choose an exit
// code and print a stable message.
//
// Build errors (task, pipeline, template, style) map to exit code 11; task
// graph problems surface as config errors (7). Watch mode logs build errors
// and keeps running, so only boundary errors are marked fatal.
//
//	err := errors.WrapError(cause, errors.CategoryPipeline, "build failed").
//		ForTask("render-pages").
//		Build()
package errors
