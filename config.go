package hdfskit

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gobeaver/beaver-kit/config"
	"github.com/mitchellh/mapstructure"
)

// Config holds the tuning knobs shared by every file system handle.
// Values come from the environment (BEAVER_HDFSKIT_*) and can be
// overridden per handle with Hadoop-style keys passed to NewFileSystem.
type Config struct {
	// Read staging buffer size in bytes
	StreamBufferSize int `env:"HDFSKIT_STREAM_BUFFER_SIZE,default:4096" mapstructure:"dfs.stream-buffer-size" validate:"gt=0"`

	// Default block size for new files
	BlockSize int64 `env:"HDFSKIT_BLOCK_SIZE,default:134217728" mapstructure:"dfs.blocksize" validate:"gt=0"`

	// Default and maximum replication for new files
	Replication    int `env:"HDFSKIT_REPLICATION,default:3" mapstructure:"dfs.replication" validate:"gte=1,ltefield=ReplicationMax"`
	ReplicationMax int `env:"HDFSKIT_REPLICATION_MAX,default:512" mapstructure:"dfs.replication.max" validate:"gte=1,lte=32767"`

	// Octal umask applied to new files and directories
	UMask string `env:"HDFSKIT_UMASK,default:022" mapstructure:"fs.permissions.umask-mode" validate:"omitempty,max=4"`

	// Remote user to act as (empty = current OS user)
	User string `env:"HDFSKIT_USER" mapstructure:"hadoop.user.name"`

	// Number of entries fetched per listing round trip
	ListingPageSize int `env:"HDFSKIT_LISTING_PAGE_SIZE,default:1000" mapstructure:"dfs.ls.limit" validate:"gt=0"`

	// SFTP driver credentials
	SFTPPassword   string `env:"HDFSKIT_SFTP_PASSWORD" mapstructure:"sftp.password"`
	SFTPPrivateKey string `env:"HDFSKIT_SFTP_PRIVATE_KEY" mapstructure:"sftp.private-key"` // Path to private key file

	// Memory driver capacity in bytes (0 = driver default)
	MemCapacity int64 `env:"HDFSKIT_MEM_CAPACITY,default:0" mapstructure:"mem.capacity" validate:"gte=0"`
}

var validate = validator.New()

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns the built-in defaults without consulting the environment.
func DefaultConfig() *Config {
	return &Config{
		StreamBufferSize: 4096,
		BlockSize:        134217728,
		Replication:      3,
		ReplicationMax:   512,
		UMask:            "022",
		ListingPageSize:  1000,
	}
}

// Merge returns a copy of c with the Hadoop-style keys from env applied.
// String values are converted to the field type ("8192" for a size).
// Unknown keys are ignored.
func (c *Config) Merge(env map[string]any) (*Config, error) {
	merged := *c
	if len(env) == 0 {
		return &merged, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &merged,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// Validate checks the struct tags and the umask syntax.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if _, err := c.umask(); err != nil {
		return err
	}
	return nil
}

func (c *Config) umask() (os.FileMode, error) {
	if c.UMask == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(c.UMask, 8, 32)
	if err != nil || v > 0o777 {
		return 0, fmt.Errorf("%w: umask %q is not an octal permission mask", ErrInvalidArgument, c.UMask)
	}
	return os.FileMode(v), nil
}

// UMaskBits returns the parsed umask, or 0 when unset or invalid.
func (c *Config) UMaskBits() os.FileMode {
	m, _ := c.umask()
	return m
}

func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%w: %s failed on '%s' tag (value: %v)",
			ErrInvalidArgument, e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
