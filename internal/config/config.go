package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port             int              `json:"port"`
	PushSecret       string           `json:"push_secret"`
	TempDir          string           `json:"temp_dir"`
	ReportNamespaces []string         `json:"report_namespaces"`
	LogConfig        logger.LogConfig `json:"log_config"`
	Broker           BrokerConfig     `json:"broker"`
	BlobStore        BlobStoreConfig  `json:"blob_store"`
	Database         DatabaseConfig   `json:"database"`
	Chunk            ChunkConfig      `json:"chunk"`
	Loader           LoaderConfig     `json:"loader"`
	Summary          SummaryConfig    `json:"summary"`
	AI               AIConfig         `json:"ai"`
}

type BrokerConfig struct {
	Type         string `json:"type"`
	Project      string `json:"project"`
	PushEndpoint string `json:"push_endpoint"`
}

type BlobStoreConfig struct {
	Type   string   `json:"type"`
	Bucket string   `json:"bucket"`
	Dir    string   `json:"dir"`
	S3     S3Config `json:"s3"`
}

type S3Config struct {
	Endpoint  string `json:"endpoint"`
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
	Region    string `json:"region"`
	UseSSL    bool   `json:"use_ssl"`
}

type DatabaseConfig struct {
	DSN        string `json:"dsn"`
	VectorSize int    `json:"vector_size"`
}

type ChunkConfig struct {
	Size    int `json:"size"`
	Overlap int `json:"overlap"`
}

type LoaderConfig struct {
	UnstructuredURL string `json:"unstructured_url"`
	UnstructuredKey string `json:"unstructured_key"`
	GitPAT          string `json:"git_pat"`
}

type SummaryConfig struct {
	Enabled bool `json:"enabled"`
}

type AIConfig struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	EmbedModel string `json:"embed_model"`
	APIKey     string `json:"api_key"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.Broker.Type == "" {
		cfg.Broker.Type = "pubsub"
	}
	if cfg.Broker.Type == "pubsub" && cfg.Broker.Project == "" {
		return nil, fmt.Errorf("broker.project is required for pubsub broker")
	}
	if cfg.Broker.PushEndpoint == "" {
		return nil, fmt.Errorf("broker.push_endpoint is required")
	}
	if cfg.BlobStore.Type == "" {
		cfg.BlobStore.Type = "gcs"
	}
	switch cfg.BlobStore.Type {
	case "gcs", "s3":
		if cfg.BlobStore.Bucket == "" {
			return nil, fmt.Errorf("blob_store.bucket is required for %s store", cfg.BlobStore.Type)
		}
		if cfg.BlobStore.Type == "s3" {
			s3 := cfg.BlobStore.S3
			if s3.Endpoint == "" || s3.SecretID == "" || s3.SecretKey == "" {
				return nil, fmt.Errorf("blob_store.s3 endpoint/secret_id/secret_key are required for s3 store")
			}
		}
	case "local":
		if cfg.BlobStore.Dir == "" {
			return nil, fmt.Errorf("blob_store.dir is required for local store")
		}
	default:
		return nil, fmt.Errorf("blob_store.type must be gcs, s3 or local")
	}
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	if cfg.Database.VectorSize == 0 {
		cfg.Database.VectorSize = 768
	}
	if cfg.Chunk.Size == 0 {
		cfg.Chunk.Size = 1024
	}
	if cfg.Summary.Enabled && cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required when summary is enabled")
	}
	if cfg.AI.Provider != "" && cfg.AI.Model == "" {
		cfg.AI.Model = "gemini-2.0-flash"
	}
	return &cfg, nil
}
