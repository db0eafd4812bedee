package websocketPkg

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"reflect"
	"sync"
	"time"

	"FaceLiveness/pkg/liveness"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrNotConfigured = errors.New("landmark service URL not configured")

// IWebsocket talks to the remote landmark service. It serves both as a face
// locator and as a landmark source.
type IWebsocket interface {
	liveness.FaceLocator
	liveness.LandmarkSource
	IsConnected() bool
	Reconnect() error
	CloseConnections()
}

type analyzeRequest struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// Analysis is the landmark service reply for one frame.
type Analysis struct {
	FaceDetected bool                     `json:"face_detected"`
	BBox         []int                    `json:"bbox,omitempty"`
	Landmarks    *liveness.LandmarkSample `json:"landmarks,omitempty"`
	Error        string                   `json:"error,omitempty"`
}

type webSocketClient struct {
	url          string
	conn         *websocket.Conn
	mu           sync.Mutex
	roundTrip    sync.Mutex
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
	jpegQuality  int
	log          *logrus.Logger

	// pending holds replies Locate fetched for frames whose landmarks have
	// not been asked for yet. Landmarks removes the entry it uses.
	pendingMu sync.Mutex
	pending   map[image.Image]pendingAnalysis
}

// pendingTTL bounds how long an unclaimed reply is kept.
const pendingTTL = 5 * time.Second

type pendingAnalysis struct {
	result *Analysis
	at     time.Time
}

func NewLandmarkClient(url string, log *logrus.Logger) IWebsocket {
	client := &webSocketClient{
		url:          url,
		pingInterval: 30 * time.Second,
		readTimeout:  10 * time.Second,
		writeTimeout: 5 * time.Second,
		jpegQuality:  90,
		log:          log,
	}

	go client.connectInBackground()

	return client
}

func (c *webSocketClient) connectInBackground() {
	if err := c.Reconnect(); err != nil {
		c.log.WithFields(logrus.Fields{
			"url":   c.url,
			"error": err.Error(),
		}).Warn("Initial connection to landmark service failed, will retry on demand")
		return
	}
	c.log.WithField("url", c.url).Info("Connected to landmark service")
}

func (c *webSocketClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *webSocketClient) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	if c.url == "" {
		return ErrNotConfigured
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		if err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout)); err != nil {
			c.log.WithField("error", err.Error()).Warn("Error sending pong to landmark service")
		}
		return nil
	})

	c.conn = conn
	go c.keepAlive(conn)

	return nil
}

func (c *webSocketClient) CloseConnections() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *webSocketClient) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		if c.conn != conn {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.WithField("error", err.Error()).Warn("Ping to landmark service failed, marking connection as dead")
			c.conn = nil
			conn.Close()
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
	}
}

func (c *webSocketClient) getConnection() (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, errors.New("not connected to landmark service")
	}
	return c.conn, nil
}

func (c *webSocketClient) dropConnection(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn = nil
	}
	conn.Close()
}

func (c *webSocketClient) Locate(frame image.Image) (*liveness.FaceRegion, error) {
	result, err := c.processFrame(frame)
	if err != nil {
		return nil, err
	}
	if !result.FaceDetected || len(result.BBox) != 4 {
		return nil, nil
	}

	region := liveness.ClampRegion(liveness.FaceRegion{
		X:      result.BBox[0],
		Y:      result.BBox[1],
		Width:  result.BBox[2],
		Height: result.BBox[3],
	}, frame.Bounds())
	if region.Empty() {
		return nil, nil
	}

	if result.Landmarks != nil {
		c.keep(frame, result)
	}
	return &region, nil
}

// Landmarks reuses the reply Locate got for the same frame, so a frame costs
// one round trip.
func (c *webSocketClient) Landmarks(frame image.Image) (*liveness.LandmarkSample, error) {
	result, ok := c.take(frame)
	if !ok {
		var err error
		if result, err = c.processFrame(frame); err != nil {
			return nil, err
		}
	}
	if !result.FaceDetected {
		return nil, nil
	}
	return result.Landmarks, nil
}

func (c *webSocketClient) keep(frame image.Image, result *Analysis) {
	if reflect.TypeOf(frame).Kind() != reflect.Pointer {
		return
	}

	now := time.Now()

	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	if c.pending == nil {
		c.pending = make(map[image.Image]pendingAnalysis)
	}
	for f, p := range c.pending {
		if now.Sub(p.at) > pendingTTL {
			delete(c.pending, f)
		}
	}
	c.pending[frame] = pendingAnalysis{result: result, at: now}
}

func (c *webSocketClient) take(frame image.Image) (*Analysis, bool) {
	if frame == nil || reflect.TypeOf(frame).Kind() != reflect.Pointer {
		return nil, false
	}

	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	p, ok := c.pending[frame]
	if !ok {
		return nil, false
	}
	delete(c.pending, frame)
	return p.result, true
}

func (c *webSocketClient) processFrame(frame image.Image) (*Analysis, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: c.jpegQuality}); err != nil {
		return nil, fmt.Errorf("error encoding frame: %w", err)
	}

	payload, err := json.Marshal(analyzeRequest{
		Type: "frame",
		Data: base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
	if err != nil {
		return nil, fmt.Errorf("error encoding request: %w", err)
	}

	c.roundTrip.Lock()
	defer c.roundTrip.Unlock()

	conn, err := c.getConnection()
	if err != nil {
		if err := c.Reconnect(); err != nil {
			return nil, fmt.Errorf("cannot connect to landmark service: %w", err)
		}
		conn, err = c.getConnection()
		if err != nil {
			return nil, err
		}
	}

	conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.dropConnection(conn)
		return nil, fmt.Errorf("error sending frame: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		c.dropConnection(conn)
		return nil, fmt.Errorf("error reading landmark response: %w", err)
	}
	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})

	var result Analysis
	if err := json.Unmarshal(message, &result); err != nil {
		return nil, fmt.Errorf("error unmarshaling landmark response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("landmark service error: %s", result.Error)
	}

	c.log.WithFields(logrus.Fields{
		"face_detected": result.FaceDetected,
		"bbox":          result.BBox,
		"has_landmarks": result.Landmarks != nil,
	}).Debug("Landmark service response")

	return &result, nil
}
