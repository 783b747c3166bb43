// Package hdfskit provides a filesystem provider for remote hierarchical
// stores, HDFS first. A [Provider] opens one [FileSystem] handle per cluster
// authority; every [Path] belongs to a handle and every file operation goes
// through the provider.
//
// # Storage Backends
//
// Backends are drivers that register a URI scheme from their init function:
//
//   - HDFS (github.com/gobeaver/hdfskit/driver/hdfs), scheme "hdfs"
//   - SFTP (github.com/gobeaver/hdfskit/driver/sftp), scheme "sftp"
//   - In-memory cluster (github.com/gobeaver/hdfskit/driver/memory), scheme "mem"
//
// Import a driver for its side effect to make its scheme available.
//
// # Basic Usage
//
//	import _ "github.com/gobeaver/hdfskit/driver/hdfs"
//
//	provider := hdfskit.NewProvider(hdfskit.WithLogger(logger))
//
//	fs, err := provider.NewFileSystem(ctx, "hdfs://namenode:8020", map[string]any{
//	    "dfs.replication": 2,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer fs.Close()
//
//	p, _ := fs.GetPath("/data", "events.csv")
//
//	// Write a file
//	w, err := provider.NewByteChannel(ctx, p, hdfskit.OpenWrite|hdfskit.OpenCreate)
//	_, err = w.Write([]byte("id,name\n"))
//	err = w.Close()
//
//	// List a directory
//	stream, err := provider.NewDirectoryStream(ctx, p.Parent(), nil)
//	for entry, err := range stream.All(ctx) {
//	    ...
//	}
//
// # Attribute Views
//
// Three views project a fresh status snapshot: "basic" (times, size, type),
// "posix" (adds owner, group and permissions) and "hdfs" (adds block size,
// replication and the hidden flag). Each view sees every field of the
// narrower ones:
//
//	attrs, err := provider.ReadAttributeMap(ctx, p, "hdfs:replication,size")
//	err = provider.SetAttribute(ctx, p, "hdfs:replication", 2)
//
// # Optional Capabilities
//
// Drivers may implement optional capability interfaces discovered by type
// assertion: [BulkCopier] for server-side copy jobs, [ViewSupporter] to
// narrow the served attribute views and [DirectReader] on input streams.
//
// # Error Handling
//
// Every error crossing the provider wraps exactly one sentinel such as
// [ErrNotExist], [ErrExist], [ErrNotEmpty] or [ErrIO]. Remote exception
// class names reported by the cluster are mapped once at the provider
// boundary:
//
//	if hdfskit.IsNotExist(err) {
//	    // handle missing file
//	}
//
//	var pathErr *hdfskit.PathError
//	if errors.As(err, &pathErr) {
//	    fmt.Println(pathErr.Op, pathErr.Path)
//	}
//
// # Configuration
//
// [GetConfig] reads BEAVER_HDFSKIT_* environment variables. The env map of
// [Provider.NewFileSystem] overrides them per handle with Hadoop key names
// such as "dfs.blocksize" or "fs.permissions.umask-mode".
package hdfskit
