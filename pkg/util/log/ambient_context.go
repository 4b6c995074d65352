// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package log

import (
	"context"

	"github.com/cockroachdb/logtags"
)

// AmbientContext is a helper type used to annotate a context with a fixed
// set of log tags carried by a long-lived object (a server, a query). The
// zero value is ready to use and annotates nothing.
type AmbientContext struct {
	tags *logtags.Buffer
}

// MakeAmbientContext creates an AmbientContext with the given initial tag.
func MakeAmbientContext(key string, value interface{}) AmbientContext {
	var ac AmbientContext
	ac.AddLogTag(key, value)
	return ac
}

// AddLogTag adds a tag; that tag will be included in all contexts annotated
// by this AmbientContext.
func (ac *AmbientContext) AddLogTag(name string, value interface{}) {
	if ac.tags == nil {
		ac.tags = logtags.SingleTagBuffer(name, value)
		return
	}
	ac.tags = ac.tags.Add(name, value)
}

// AnnotateCtx annotates a given context with the ambient tags. Tags already
// present in the context are preserved.
func (ac *AmbientContext) AnnotateCtx(ctx context.Context) context.Context {
	if ac.tags == nil {
		return ctx
	}
	return logtags.AddTags(ctx, ac.tags)
}
