package mirror

import (
	"context"
	"fmt"
	"os"

	"autosaver/internal/config"
	"autosaver/internal/saver"
)

// Environment variables holding static S3 credentials. Credentials never live
// in the config file.
const (
	EnvS3AccessKeyID     = "AUTOSAVER_S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "AUTOSAVER_S3_SECRET_ACCESS_KEY"
)

// NewMirrorFromConfig creates the configured mirror. An empty type disables
// mirroring and returns nil. When cfg.Encrypt is set the mirror is wrapped in
// an EncryptingMirror using enc.
func NewMirrorFromConfig(ctx context.Context, cfg config.MirrorConfig, enc saver.Encryptor) (saver.Mirror, error) {
	var m saver.Mirror
	switch cfg.Type {
	case "":
		return nil, nil
	case "memory":
		m = NewMemoryMirror(cfg.Name)
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem mirror requires fs_root to be set")
		}
		fsm, err := NewFileSystemMirror(cfg.Name, cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		m = fsm
	case "s3":
		s3m, err := NewS3Mirror(ctx, cfg.Name, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     os.Getenv(EnvS3AccessKeyID),
			SecretAccessKey: os.Getenv(EnvS3SecretAccessKey),
		})
		if err != nil {
			return nil, err
		}
		m = s3m
	default:
		return nil, fmt.Errorf("unknown mirror type: %s", cfg.Type)
	}

	if cfg.Encrypt {
		if enc == nil || !enc.IsConfigured() {
			return nil, fmt.Errorf("mirror %q requires encryption keys; run 'autosaver keys init'", cfg.Name)
		}
		m = NewEncryptingMirror(m, enc)
	}
	return m, nil
}
