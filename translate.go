package hdfskit

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// RemoteError is implemented by errors that carry the class name of a
// remote (Java) exception. colinmarc/hdfs errors and RemoteException both
// satisfy it.
type RemoteError interface {
	error
	Exception() string
	Message() string
}

// RemoteException is the portable remote error emitted by drivers that do
// not already carry one.
type RemoteException struct {
	Class string
	Msg   string
}

func (e *RemoteException) Error() string {
	return fmt.Sprintf("%s: %s", e.Class, e.Msg)
}

// Exception returns the remote exception class name.
func (e *RemoteException) Exception() string { return e.Class }

// Message returns the remote message.
func (e *RemoteException) Message() string { return e.Msg }

// Hadoop exception class names emitted by the namenode.
const (
	ExcPathIsNotEmptyDirectory     = "org.apache.hadoop.fs.PathIsNotEmptyDirectoryException"
	ExcPathExists                  = "org.apache.hadoop.fs.PathExistsException"
	ExcFileAlreadyExists           = "org.apache.hadoop.fs.FileAlreadyExistsException"
	ExcPathPermission              = "org.apache.hadoop.fs.PathPermissionException"
	ExcPathAccessDenied            = "org.apache.hadoop.fs.PathAccessDeniedException"
	ExcAccessControl               = "org.apache.hadoop.security.AccessControlException"
	ExcParentNotDirectory          = "org.apache.hadoop.fs.ParentNotDirectoryException"
	ExcListingStartAfterNotFound   = "org.apache.hadoop.fs.DirectoryListingStartAfterNotFoundException"
	ExcPathIsNotDirectory          = "org.apache.hadoop.fs.PathIsNotDirectoryException"
	ExcPathIsDirectory             = "org.apache.hadoop.fs.PathIsDirectoryException"
	ExcInvalidPath                 = "org.apache.hadoop.fs.InvalidPathException"
	ExcPathNotFound                = "org.apache.hadoop.fs.PathNotFoundException"
	ExcFileNotFound                = "java.io.FileNotFoundException"
	ExcUnresolvedLink              = "org.apache.hadoop.fs.UnresolvedLinkException"
	ExcPathIO                      = "org.apache.hadoop.fs.PathIOException"
	ExcUnsupportedFileSystem       = "org.apache.hadoop.fs.UnsupportedFileSystemException"
	ExcInvalidRequest              = "org.apache.hadoop.fs.InvalidRequestException"
)

// remoteErrors maps remote exception classes to the portable taxonomy.
// Classes absent from the table degrade to ErrIO.
var remoteErrors = map[string]error{
	ExcPathIsNotEmptyDirectory:   ErrNotEmpty,
	ExcPathExists:                ErrExist,
	ExcFileAlreadyExists:         ErrExist,
	ExcPathPermission:            ErrPermission,
	ExcPathAccessDenied:          ErrPermission,
	ExcAccessControl:             ErrPermission,
	ExcParentNotDirectory:        ErrNotDir,
	ExcListingStartAfterNotFound: ErrNotDir,
	ExcPathIsNotDirectory:        ErrNotDir,
	ExcPathIsDirectory:           ErrNotExist,
	ExcInvalidPath:               ErrNotExist,
	ExcPathNotFound:              ErrNotExist,
	ExcFileNotFound:              ErrNotExist,
	ExcUnresolvedLink:            ErrNotLink,
}

// taxonomy lists the sentinels that may cross the provider boundary as is.
var taxonomy = []error{
	ErrNotExist, ErrExist, ErrNotEmpty, ErrPermission, ErrNotDir, ErrNotLink,
	ErrNotSupported, ErrInvalidArgument, ErrProviderMismatch, ErrIO, ErrClosed,
}

// translate converts an error returned by a driver into a *PathError whose
// Err wraps exactly one taxonomy sentinel. Only the message of an unmapped
// backend error survives.
func translate(op string, err error, paths ...*Path) error {
	if err == nil {
		return nil
	}

	pe := &PathError{Op: op}
	if len(paths) > 0 && paths[0] != nil {
		pe.Path = paths[0].String()
	}
	if len(paths) > 1 && paths[1] != nil {
		pe.Other = paths[1].String()
	}

	var already *PathError
	if errors.As(err, &already) && isTaxonomy(already.Err) {
		if pe.Path == "" {
			return already
		}
		pe.Err = already.Err
		return pe
	}

	var remote RemoteError
	if errors.As(err, &remote) {
		if kind, ok := remoteErrors[remote.Exception()]; ok {
			pe.Err = fmt.Errorf("%w: %s", kind, remote.Message())
		} else {
			pe.Err = fmt.Errorf("%w: %s", ErrIO, remote.Message())
		}
		return pe
	}

	switch {
	case isTaxonomy(err):
		pe.Err = err
	// ENOTEMPTY also matches fs.ErrExist, so it is checked first.
	case errors.Is(err, syscall.ENOTEMPTY):
		pe.Err = ErrNotEmpty
	case errors.Is(err, syscall.ENOTDIR):
		pe.Err = ErrNotDir
	case errors.Is(err, fs.ErrInvalid):
		pe.Err = ErrInvalidArgument
	case errors.Is(err, fs.ErrNotExist):
		pe.Err = ErrNotExist
	case errors.Is(err, fs.ErrExist):
		pe.Err = ErrExist
	case errors.Is(err, fs.ErrPermission):
		pe.Err = ErrPermission
	case errors.Is(err, fs.ErrClosed):
		pe.Err = ErrClosed
	default:
		pe.Err = fmt.Errorf("%w: %s", ErrIO, err.Error())
	}
	return pe
}

func isTaxonomy(err error) bool {
	for _, t := range taxonomy {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
