// Package chirpy is the storage core of a small social network: accounts,
// posts and the follow graph, each kept in memory and written through to
// one record file per entity under a data directory.
//
// Basic usage:
//
//	app, _ := chirpy.Open("/var/lib/chirpy", chirpy.WithLogger(log))
//	defer app.Close()
//
//	// Accounts
//	app.Users.Register("alice", "secret")
//	app.Users.Authenticate("alice", "secret")
//
//	// Posts and follows
//	app.Posts.Post("alice", "hello #golang")
//	app.Follows.Follow("bob", "alice")
//	timeline := app.Posts.Timeline("bob")
//
//	// Search
//	hits, _ := app.Search.Query("#golang")
//
// Snapshots of a data directory can be shipped to an OCI registry:
//
//	files, _ := chirpy.Collect(dir)
//	remote.Push(ctx, files)
//
//	files, _ = remote.Pull(ctx)
//	chirpy.Restore(dir, files)
//
// A data directory is locked by the process that opened it. Write-through
// failures leave the change visible in memory and surface as errors that
// match ErrPersistence.
package chirpy
