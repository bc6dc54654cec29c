package main

func main() {
	LogInfo("RTMP ingest server")

	cfg := LoadConfig()
	server := NewServer(cfg)

	if err := server.Start(); err != nil {
		LogError(err)
	}
}
