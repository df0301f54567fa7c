// Copyright © 2018 One Concern

/*
Package baseline manages the persisted baseline version: the version the next release is computed from.

The baseline is a single text record ("1.0.3\n"). Releases stage a target version into the record so
the build can embed it, then restore the previous value:

	unlock, err := store.Lock()
	...
	defer unlock()

	staged, err := store.Stage(ctx, previous, target, runID)
	...
	defer staged.Restore(context.Background())

While a target is staged, a restore journal records the previous value. An interrupted release leaves the
journal behind, and Recover puts the baseline back the way it was found.
*/
package baseline
