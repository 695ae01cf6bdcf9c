package logctx

import (
	"context"
	"framelink/internal/global"
)

// Stores a private copy of tags so later appends on either side never alias
func withTags(ctx context.Context, tags []string) (newCtx context.Context) {
	newCtx = context.WithValue(ctx, global.LogTagsKey, append([]string(nil), tags...))
	return
}

// Adds one tag below the current ones
func AppendCtxTag(ctx context.Context, newTag string) (newCtx context.Context) {
	newCtx = withTags(ctx, append(GetTagList(ctx), newTag))
	return
}

// Replaces the tags with a component metric namespace, so log lines and metrics share a path
func WithNamespace(ctx context.Context, namespace []string) (newCtx context.Context) {
	newCtx = withTags(ctx, namespace)
	return
}

// Copy of the current tags, empty when none are set
func GetTagList(ctx context.Context) (tags []string) {
	stored, _ := ctx.Value(global.LogTagsKey).([]string)
	tags = make([]string, len(stored), len(stored)+1)
	copy(tags, stored)
	return
}

