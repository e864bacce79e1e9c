package curation

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

var featureAddHandler = &Handler{
	Name:            "feature_add",
	recordsReaction: true,
	process:         setFeatured(true),
}

var featureRemoveHandler = &Handler{
	Name:            "feature_remove",
	recordsReaction: true,
	process:         setFeatured(false),
}

// setFeatured toggles the featured flag; no other side effects.
func setFeatured(featured bool) func(ctx context.Context, c *Curator, env *env) error {
	return func(ctx context.Context, c *Curator, env *env) error {
		if env.content == nil {
			// Unmaterialized threads have nothing to feature.
			return nil
		}

		if env.content.IsFeatured == featured {
			return nil
		}

		if err := c.store.SetFeatured(ctx, env.content.MessageID, featured); err != nil {
			return fmt.Errorf("failed to set featured=%t: %w", featured, err)
		}

		env.content.IsFeatured = featured

		c.logger.Info("Featured flag updated",
			zap.Uint64("contentID", env.content.MessageID),
			zap.Bool("featured", featured))

		return nil
	}
}
