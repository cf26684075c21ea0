// Package storage manages the on-disk layout of locally buffered run data.
//
// All queue state lives under a data root (default ".runsync"), keyed by
// delivery mode and container:
//
//	<root>/async/run-RUN-42/exec-20240501_123000-5f3a9c1e/
//	<root>/offline/run-RUN-42/
//
// Async executions get a fresh subdirectory per process start so multiple
// attempts against the same run never collide. The external sync tooling
// identifies a directory's owner through the container_type marker file.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultDataDirectory is the default data root, relative to the
	// working directory.
	DefaultDataDirectory = ".runsync"

	// AsyncDirectory groups queues drained by a live consumer.
	AsyncDirectory = "async"

	// OfflineDirectory groups queues left for manual synchronization.
	OfflineDirectory = "offline"

	// SyncDirectory groups scratch space of inline-delivery containers.
	SyncDirectory = "sync"

	// containerTypeFile is the marker naming the owning container's type.
	containerTypeFile = "container_type"
)

// ContainerType identifies the kind of object a queue belongs to.
type ContainerType string

// Supported container types.
const (
	ContainerTypeRun          ContainerType = "run"
	ContainerTypeProject      ContainerType = "project"
	ContainerTypeModel        ContainerType = "model"
	ContainerTypeModelVersion ContainerType = "model_version"
)

// containerDirName builds the directory name for one container.
func containerDirName(containerType ContainerType, containerID string) string {
	return fmt.Sprintf("%s-%s", containerType, containerID)
}

// executionDirName builds a unique per-process directory name.
func executionDirName(now time.Time) string {
	return fmt.Sprintf("exec-%s-%s",
		now.UTC().Format("20060102_150405"),
		strings.SplitN(uuid.NewString(), "-", 2)[0],
	)
}

// AsyncQueueDir returns a fresh, process-unique queue directory for an
// async container.
func AsyncQueueDir(root string, containerType ContainerType, containerID string) string {
	return filepath.Join(root, AsyncDirectory,
		containerDirName(containerType, containerID),
		executionDirName(time.Now()),
	)
}

// OfflineQueueDir returns the queue directory for an offline container.
// Offline queues are shared across process starts so the external sync
// tool can pick them up later.
func OfflineQueueDir(root string, containerType ContainerType, containerID string) string {
	return filepath.Join(root, OfflineDirectory,
		containerDirName(containerType, containerID),
	)
}

// SyncQueueDir returns a fresh, process-unique scratch directory for a
// container delivering operations inline.
func SyncQueueDir(root string, containerType ContainerType, containerID string) string {
	return filepath.Join(root, SyncDirectory,
		containerDirName(containerType, containerID),
		executionDirName(time.Now()),
	)
}

// OperationStorage owns one queue directory and its marker files.
type OperationStorage struct {
	dataPath      string
	containerType ContainerType
}

// NewOperationStorage creates the directory if needed and writes the
// container_type marker.
func NewOperationStorage(dataPath string, containerType ContainerType) (*OperationStorage, error) {
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	marker := filepath.Join(dataPath, containerTypeFile)
	if err := os.WriteFile(marker, []byte(containerType), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write container type marker: %w", err)
	}

	return &OperationStorage{dataPath: dataPath, containerType: containerType}, nil
}

// DataPath returns the queue directory this storage owns.
func (s *OperationStorage) DataPath() string {
	return s.dataPath
}

// ContainerType returns the owning container's type.
func (s *OperationStorage) ContainerType() ContainerType {
	return s.containerType
}

// Cleanup removes the owned directory and, when that leaves the parent
// container directory empty, the parent as well.
func (s *OperationStorage) Cleanup() error {
	if err := os.RemoveAll(s.dataPath); err != nil {
		return fmt.Errorf("failed to remove data directory: %w", err)
	}
	// Fails while sibling executions remain, which is fine.
	_ = os.Remove(filepath.Dir(s.dataPath))
	return nil
}

// ReadContainerType reads the marker file of an existing data directory.
func ReadContainerType(dataPath string) (ContainerType, error) {
	data, err := os.ReadFile(filepath.Join(dataPath, containerTypeFile))
	if err != nil {
		return "", fmt.Errorf("failed to read container type marker: %w", err)
	}
	return ContainerType(strings.TrimSpace(string(data))), nil
}
