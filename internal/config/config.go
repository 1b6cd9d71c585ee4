package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string            `yaml:"env" env-default:"local"`
	HTTP        HTTPConfig        `yaml:"http"`
	Storage     StorageConfig     `yaml:"storage"`
	Backend     BackendConfig     `yaml:"backend"`
	Gallery     GalleryConfig     `yaml:"gallery"`
	FileStorage FileStorageConfig `yaml:"file_storage"`
	Auth        AuthConfig        `yaml:"auth"`
}

type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

type StorageConfig struct {
	// memory, postgres или redis
	Driver string    `yaml:"driver" env:"STORAGE_DRIVER" env-default:"memory"`
	DSN    string    `yaml:"dsn" env:"STORAGE_DSN"`
	Redis  RedisConf `yaml:"redis"`
}

type RedisConf struct {
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB"`
}

// BackendConfig описывает удалённый API генерации
type BackendConfig struct {
	URL      string        `yaml:"url" env:"BACKEND_URL" env-default:"http://127.0.0.1:7860"`
	Username string        `yaml:"username" env:"BACKEND_USERNAME"`
	Password string        `yaml:"password" env:"BACKEND_PASSWORD"`
	Timeout  time.Duration `yaml:"timeout" env-default:"5m"`
}

type GalleryConfig struct {
	// относительное отклонение сторон, при котором изображение считается квадратным
	SquareTolerance float64 `yaml:"square_tolerance" env-default:"0"`
}

type FileStorageConfig struct {
	BaseDir string `yaml:"base_dir" env-default:"./exports"`
	BaseURL string `yaml:"base_url"`
}

type AuthConfig struct {
	Username     string `yaml:"username" env:"AUTH_USERNAME"`
	PasswordHash string `yaml:"password_hash" env:"AUTH_PASSWORD_HASH"`
}

func MustLoad() *Config {
	path := fetchConfigPath()
	if path == "" {
		panic("config path is empty")
	}

	return MustLoadPath(path)
}

func MustLoadPath(configPath string) *Config {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	return &cfg
}

func fetchConfigPath() string {
	var res string

	// --config="path/to/config.yaml"
	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
