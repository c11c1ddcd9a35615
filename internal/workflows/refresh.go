package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/campusgo/shuttleplan/internal/core/domain"
)

// CatalogRefreshWorkflow fetches the stop catalog and replaces the database
// snapshot that planning falls back to when the catalog upstream is down.
// A fetch or store failure leaves the previous snapshot untouched.
func CatalogRefreshWorkflow(ctx workflow.Context) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting catalog refresh")

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 60 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 5 * time.Second,
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Fetch the live catalog
	var stops []domain.Stop
	if err := workflow.ExecuteActivity(ctx, "FetchCatalog").Get(ctx, &stops); err != nil {
		return err
	}

	// Step 2: Replace the snapshot
	if err := workflow.ExecuteActivity(ctx, "StoreSnapshot", stops).Get(ctx, nil); err != nil {
		return err
	}

	// Step 3: Drop the shared cache and announce. Both best effort: the
	// snapshot is already durable.
	_ = workflow.ExecuteActivity(ctx, "InvalidateCatalogCache").Get(ctx, nil)
	_ = workflow.ExecuteActivity(ctx, "PublishRefreshed", len(stops)).Get(ctx, nil)

	logger.Info("Catalog refresh complete", "stops", len(stops))
	return nil
}
