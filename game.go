// Puzzle Party
//
// Players join a named room, share a puzzle image, and cooperatively swap
// pieces into their correct slots while chatting.
//
// Features:
// - Rooms are created on first join and removed once empty for --room-timeout
// - Rejoining an empty room before it is removed keeps the same puzzle
// - Every room state change is pushed to all of the room's connections
// - Solving is announced once per shuffle, with the elapsed time
// - Reset, a new image, or a new difficulty deals a fresh shuffle
// - Websocket transport, with long polling for clients that cannot use it
// - In-browser QR button to share the current room, backed by go-qrcode

package main

import (
	"crypto/rand"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const gameIDLength = 8

// newGameID generates a crypto-random room id that is not already in use.
func newGameID(rooms *Registry) string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	const max = byte(255 - (256 % len(letters)))

	for {
		out := make([]byte, 0, gameIDLength)
		buf := make([]byte, gameIDLength*2)

		for len(out) < gameIDLength {
			if _, err := rand.Read(buf); err != nil {
				panic("crypto/rand failure: " + err.Error())
			}

			for _, b := range buf {
				if b <= max && len(out) < gameIDLength {
					out = append(out, letters[int(b)%len(letters)])
				}
			}
		}

		id := string(out)
		if _, exists := rooms.Room(id); !exists {
			return id
		}
	}
}

// puzzleHeaders relaxes the default policy so rooms can show images hosted
// anywhere.
func puzzleHeaders(cfg *Config, w http.ResponseWriter) {
	securityHeaders(cfg, w)

	w.Header().Del("Cross-Origin-Embedder-Policy")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src * data: blob:")
}

func serveIndex(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data, err := assets.ReadFile("assets/puzzle/index.html")
		if err != nil {
			errs <- err

			http.Error(w, "client unavailable", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		puzzleHeaders(cfg, w)

		_, err = w.Write(data)
		if err != nil {
			errs <- err
		}
	}
}

// serveQR renders a PNG QR code linking to the room the request names.
func serveQR(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if ps.ByName("gameid") == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		scheme := cfg.scheme()
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		securityHeaders(cfg, w)

		_, _ = w.Write(png)
	}
}

// redirectNewGame sends GET $path to a freshly generated $path/:gameid.
func redirectNewGame(cfg *Config, path string, rooms *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := newGameID(rooms)
		logf(cfg, "GAMES: Assigned new room %s to %s", gameID, realIP(r))
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerPuzzleGame sets up routes so that:
//   - $path                  → redirects to a new random room
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → websocket (also served at /ws)
//   - $path/:gameid/qr       → PNG QR code for that room URL
//   - /poll...               → long-polling fallback
func registerPuzzleGame(cfg *Config, path string, mux *httprouter.Router, hub *Hub, errs chan<- error) {
	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, hub.rooms))

	mux.GET(cfg.prefix+path+"/:gameid", serveIndex(cfg, errs))

	mux.GET(cfg.prefix+"/assets/*filepath", serveAssets(cfg, errs))

	mux.GET(cfg.prefix+"/ws", serveWS(cfg, hub))
	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWS(cfg, hub))

	mux.GET(cfg.prefix+path+"/:gameid/qr", serveQR(cfg))

	registerPolling(cfg, mux, newPollServer(cfg, hub), errs)
}
