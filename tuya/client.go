package tuya

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ArtLeinich/tuya-sensor-monitoring/config"
)

// StatusItem is one datapoint from the device status response. The sensor
// reports temperature under code "va_temperature" (tenths of a degree) and
// humidity under "va_humidity".
type StatusItem struct {
	Code  string  `json:"code"`
	Value float64 `json:"value"`
}

type tokenResult struct {
	AccessToken string `json:"access_token"`
}

type tokenResponse struct {
	Success bool        `json:"success"`
	Msg     string      `json:"msg"`
	Result  tokenResult `json:"result"`
}

type statusResponse struct {
	Success bool         `json:"success"`
	Msg     string       `json:"msg"`
	Result  []StatusItem `json:"result"`
}

// Client calls the Tuya OpenAPI with HMAC-SHA256 request signing.
type Client struct {
	Host      string
	AccessKey string
	SecretKey string
	DeviceID  string

	httpClient *http.Client
}

// NewClient builds a client with the given credentials. The timeout bounds
// every request so a hung Tuya call cannot stall an ingestion cycle.
func NewClient(host, accessKey, secretKey, deviceID string, timeout time.Duration) *Client {
	return &Client{
		Host:       host,
		AccessKey:  accessKey,
		SecretKey:  secretKey,
		DeviceID:   deviceID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewClientFromEnv builds a client from TUYA_* environment variables.
func NewClientFromEnv() (*Client, error) {
	accessKey := config.Getenv("TUYA_ACCESS_KEY", "")
	secretKey := config.Getenv("TUYA_SECRET_KEY", "")
	deviceID := config.Getenv("TUYA_DEVICE_ID", "")
	if accessKey == "" || secretKey == "" || deviceID == "" {
		return nil, fmt.Errorf("tuya: TUYA_ACCESS_KEY, TUYA_SECRET_KEY and TUYA_DEVICE_ID must be set")
	}
	host := config.Getenv("TUYA_API_HOST", "https://openapi.tuyaeu.com")
	timeout := time.Duration(config.GetenvInt("TUYA_TIMEOUT_SECONDS", 10)) * time.Second
	return NewClient(host, accessKey, secretKey, deviceID, timeout), nil
}

// encryptStr signs signStr with the secret key (HMAC-SHA256, uppercase hex).
func encryptStr(signStr, secretKey string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(signStr))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

// stringToSign builds the canonical request string for an empty-body GET.
func stringToSign(method, path string) string {
	emptyBodyHash := sha256.Sum256(nil)
	return method + "\n" + hex.EncodeToString(emptyBodyHash[:]) + "\n\n" + path
}

// GetToken fetches an access token from the Tuya API.
func (c *Client) GetToken() (string, error) {
	const signPath = "/v1.0/token?grant_type=1"
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	sign := encryptStr(c.AccessKey+timestamp+stringToSign(http.MethodGet, signPath), c.SecretKey)

	req, err := http.NewRequest(http.MethodGet, c.Host+signPath, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("t", timestamp)
	req.Header.Set("sign_method", "HMAC-SHA256")
	req.Header.Set("client_id", c.AccessKey)
	req.Header.Set("sign", sign)

	var parsed tokenResponse
	if err := c.do(req, &parsed); err != nil {
		return "", err
	}
	if !parsed.Success {
		return "", fmt.Errorf("tuya: token request failed: %s", parsed.Msg)
	}
	return parsed.Result.AccessToken, nil
}

// GetDeviceStatus fetches the current status datapoints of the device.
func (c *Client) GetDeviceStatus(token string) ([]StatusItem, error) {
	urlPath := fmt.Sprintf("/v1.0/devices/%s/status", c.DeviceID)
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	sign := encryptStr(c.AccessKey+token+timestamp+stringToSign(http.MethodGet, urlPath), c.SecretKey)

	req, err := http.NewRequest(http.MethodGet, c.Host+urlPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("t", timestamp)
	req.Header.Set("sign_method", "HMAC-SHA256")
	req.Header.Set("client_id", c.AccessKey)
	req.Header.Set("sign", sign)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("access_token", token)

	var parsed statusResponse
	if err := c.do(req, &parsed); err != nil {
		return nil, err
	}
	if !parsed.Success {
		return nil, fmt.Errorf("tuya: device status request failed: %s", parsed.Msg)
	}
	return parsed.Result, nil
}

// FetchCurrentReading fetches a token and the device status in one go.
func (c *Client) FetchCurrentReading() ([]StatusItem, error) {
	token, err := c.GetToken()
	if err != nil {
		return nil, err
	}
	return c.GetDeviceStatus(token)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("tuya: decode response: %w", err)
	}
	return nil
}
