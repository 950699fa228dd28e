// SPDX-License-Identifier: EPL-2.0

/*
Package session coordinates crop and cut edits of a clip.

A session moves through Idle, Editing, Staged and ends Applied or Cancelled:

	m := session.NewManager(compose.New())
	defer m.Close()

	unsubscribe := m.Subscribe(func(e session.Event) { ... })
	defer unsubscribe()

	m.StartCrop(clip)                     // copies clip to <id>_staging.<ext>
	m.AdjustCrop(clip.ID, start, end)     // queues a preview, returns at once
	res, err := m.Apply(ctx, clip.ID)     // or m.Cancel(clip.ID)

Each adjustment gets a generation number. Previews render on a worker pool
into <id>_cropped.<gen>.wav or <id>_cut.<gen>.wav and are renamed over
<id>_cropped.wav or <id>_cut.wav when they finish. A preview finishing after
a newer one was requested is deleted without being staged.

Every session publishes exactly one terminal event, Finished or Cancelled,
and owns all of its work files: none survive Apply or Cancel. Apply keeps
the asset ID and moves it to a new committed file; removing the superseded
original is best effort and failures are reported in Result.CleanupErr.
*/
package session
