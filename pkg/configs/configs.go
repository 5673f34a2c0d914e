// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package configs

// PostgresConfig carries connection settings for the metadata database.
type PostgresConfig struct {
	Host               string             `mapstructure:"host" validate:"required"`
	Port               int                `mapstructure:"port" validate:"required"`
	DbName             string             `mapstructure:"db_name" validate:"required"`
	Auth               PostgresAuthConfig `mapstructure:"auth" validate:"required"`
	MaxOpenConnection  int                `mapstructure:"max_open_connection"`
	MaxIdealConnection int                `mapstructure:"max_ideal_connection"`
	SslMode            string             `mapstructure:"ssl_mode"`
}

type PostgresAuthConfig struct {
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
}

// RedisConfig carries connection settings for the flag/session cache.
type RedisConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
}

// UploadStoreConfig describes where received interview clips are written.
type UploadStoreConfig struct {
	// Directory is the root under which clips land; videos go to
	// {Directory}/videos.
	Directory string `mapstructure:"directory" validate:"required"`
	// MaxClipBytes is the upload size ceiling. Clips above it are rejected
	// with 413 before anything touches disk.
	MaxClipBytes int64 `mapstructure:"max_clip_bytes" validate:"required"`
}
