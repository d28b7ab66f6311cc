// chatclient is a manual testing tool: it submits one message to a running
// backend and prints (optionally saves) the returned speakable messages.
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

type chatResponse struct {
	Messages []struct {
		Text             string          `json:"text"`
		Audio            string          `json:"audio"`
		Lipsync          json.RawMessage `json:"lipsync"`
		FacialExpression string          `json:"facialExpression"`
		Animation        string          `json:"animation"`
	} `json:"messages"`
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	server := flag.String("server", "http://localhost:3000", "backend base URL")
	message := flag.String("message", "", "message to submit; empty triggers the greeting")
	saveDir := flag.String("save", "", "directory to save returned audio files (optional)")
	timeout := flag.Duration("timeout", 60*time.Second, "request timeout")
	flag.Parse()

	body, err := json.Marshal(map[string]string{"message": *message})
	if err != nil {
		log.Fatalf("encode request: %v", err)
	}

	client := &http.Client{Timeout: *timeout}
	resp, err := client.Post(*server+"/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("chat request failed: %v", err)
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Fatalf("decode response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("backend returned status %d (fallback reply below)", resp.StatusCode)
	}

	for i, msg := range parsed.Messages {
		fmt.Printf("[%d] %s (expression=%s animation=%s audio=%dB lipsync=%dB)\n",
			i, msg.Text, msg.FacialExpression, msg.Animation, len(msg.Audio), len(msg.Lipsync))

		if *saveDir == "" || msg.Audio == "" {
			continue
		}
		audio, err := base64.StdEncoding.DecodeString(msg.Audio)
		if err != nil {
			log.Printf("message %d: audio is not valid base64: %v", i, err)
			continue
		}
		if err := os.MkdirAll(*saveDir, 0o755); err != nil {
			log.Fatalf("create save dir: %v", err)
		}
		path := filepath.Join(*saveDir, fmt.Sprintf("reply_%d.mp3", i))
		if err := os.WriteFile(path, audio, 0o644); err != nil {
			log.Printf("message %d: save audio: %v", i, err)
			continue
		}
		log.Printf("saved %s", path)
	}
}
