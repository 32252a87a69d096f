package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type HTTPServer struct {
	Host string
	Port string
}

type RedisCache struct {
	Host     string
	Port     string
	Password string
}

type Postgres struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type Room struct {
	IdleTTL           time.Duration
	HistoryWindow     time.Duration
	HeartbeatInterval time.Duration
	PersistAttempts   int
	PersistBackoff    time.Duration
	SendBuffer        int
}

type Config struct {
	HTTP     HTTPServer
	Redis    RedisCache
	Postgres Postgres
	Room     Room
}

const logtag = "[config]"

func Load() *Config {
	configPath := flag.String("config", "", "path env file")
	flag.Parse()

	if *configPath != "" {
		if err := godotenv.Load(*configPath); err != nil {
			log.Fatalf("%s err loading env from file : %v", logtag, err)
		}
		log.Printf("%s using env from : %s", logtag, *configPath)
	} else {
		log.Printf("%s using env from .env", logtag)
		_ = godotenv.Load()
	}

	cfg := &Config{
		HTTP:     *newHTTP(),
		Redis:    *newRedis(),
		Postgres: *newPostgres(),
		Room:     *newRoom(),
	}

	log.Printf("%s backend config : %+v\n", logtag, cfg)
	return cfg
}

func newHTTP() *HTTPServer {
	return &HTTPServer{
		Port: getenv("HTTP_PORT", "8080"),
		Host: getenv("HTTP_HOST", "localhost"),
	}
}

func newRedis() *RedisCache {
	return &RedisCache{
		Port:     getenv("REDIS_PORT", "6379"),
		Host:     getenv("REDIS_HOST", "redis"),
		Password: getenv("REDIS_PASSWORD", "shared"),
	}
}

func newPostgres() *Postgres {
	return &Postgres{
		Host:     getenv("DB_HOST", "localhost"),
		Port:     getenv("DB_PORT", "5432"),
		User:     getenv("DB_USER", "admin"),
		Password: getenv("DB_PASSWORD", "shared"),
		DBName:   getenv("DB_NAME", "peerpoint"),
		SSLMode:  getenv("DB_SSLMODE", "disable"),
	}
}

func newRoom() *Room {
	return &Room{
		IdleTTL:           getenvDuration("ROOM_IDLE_TTL", time.Minute),
		HistoryWindow:     getenvDuration("ROOM_HISTORY_WINDOW", 5*time.Second),
		HeartbeatInterval: getenvDuration("ROOM_HEARTBEAT_INTERVAL", 30*time.Second),
		PersistAttempts:   getenvInt("ROOM_PERSIST_ATTEMPTS", 3),
		PersistBackoff:    getenvDuration("ROOM_PERSIST_BACKOFF", 500*time.Millisecond),
		SendBuffer:        getenvInt("ROOM_SEND_BUFFER", 32),
	}
}

func getenv(key, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		fmt.Printf("%s %s undefined. Using default value %s\n", logtag, key, defaultValue)
		return defaultValue
	}
	fmt.Printf("%s %s = %s\n", logtag, key, val)
	return val
}

func getenvDuration(key string, defaultValue time.Duration) time.Duration {
	val := getenv(key, defaultValue.String())
	parsed, err := time.ParseDuration(val)
	if err != nil {
		log.Printf("%s %s invalid duration %q, using %s", logtag, key, val, defaultValue)
		return defaultValue
	}
	return parsed
}

func getenvInt(key string, defaultValue int) int {
	val := getenv(key, strconv.Itoa(defaultValue))
	parsed, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("%s %s invalid int %q, using %d", logtag, key, val, defaultValue)
		return defaultValue
	}
	return parsed
}
