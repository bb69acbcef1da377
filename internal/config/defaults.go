package config

import (
	"runtime"
	"time"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Backend.URL == "" {
		cfg.Backend.URL = "http://localhost:9200"
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 60 * time.Second
	}
	if cfg.Backend.IndexName == "" {
		cfg.Backend.IndexName = "products"
	}
	if cfg.Executor.Concurrency == 0 {
		cfg.Executor.Concurrency = runtime.NumCPU()
	}
	if cfg.Executor.IndexFailurePolicy == "" {
		cfg.Executor.IndexFailurePolicy = "fail_fast"
	}
	if cfg.Executor.QueryFailurePolicy == "" {
		cfg.Executor.QueryFailurePolicy = "isolate"
	}
	if cfg.Executor.ProgressEvery == 0 {
		cfg.Executor.ProgressEvery = 100
	}
	if cfg.Evaluation.K == 0 {
		cfg.Evaluation.K = 10
	}
	if cfg.Evaluation.Size == 0 {
		cfg.Evaluation.Size = 10
	}
	if cfg.Evaluation.Split == "" {
		cfg.Evaluation.Split = "test"
	}
	if cfg.Evaluation.Strategy == "" {
		cfg.Evaluation.Strategy = "vector"
	}
	if cfg.Index.Family == "" {
		cfg.Index.Family = "flat"
	}
	if cfg.Index.NList == 0 {
		cfg.Index.NList = 4
	}
	if cfg.Index.NProbe == 0 {
		cfg.Index.NProbe = 1
	}
	if cfg.Index.HNSWM == 0 {
		cfg.Index.HNSWM = 8
	}
	if cfg.Index.EfConstruction == 0 {
		cfg.Index.EfConstruction = 40
	}
	if cfg.Index.EfSearch == 0 {
		cfg.Index.EfSearch = 16
	}
	if cfg.Index.LSHBits == 0 {
		cfg.Index.LSHBits = 96
	}
	if cfg.Transform.HashDim == 0 {
		cfg.Transform.HashDim = 8
	}
	if cfg.Transform.RotateOutputDim == 0 {
		cfg.Transform.RotateOutputDim = 64
	}
	if cfg.Transform.Centroids == 0 {
		cfg.Transform.Centroids = 40
	}
	if cfg.Transform.CentroidsPerDocument == 0 {
		cfg.Transform.CentroidsPerDocument = 2
	}
	if cfg.Transform.CentroidsPerQuery == 0 {
		cfg.Transform.CentroidsPerQuery = 2
	}
	if cfg.Transform.KMeansIterations == 0 {
		cfg.Transform.KMeansIterations = 25
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9200
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/hyoka/data/runs.db"
	}
}
