package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"volatbot/internal/models"
)

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// doRequest выполняет запрос к REST API Binance. Для подписанных
// запросов к параметрам добавляются timestamp и recvWindow, подпись
// HMAC-SHA256 по строке параметров уходит в signature.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, auth bool, out any) error {
	if params == nil {
		params = url.Values{}
	}

	if auth {
		params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		params.Set("recvWindow", "5000")
	}

	query := params.Encode()
	if auth {
		// Подпись считается по строке параметров и идёт строго последним
		// параметром: биржа проверяет HMAC именно от предшествующей строки.
		query += "&signature=" + sign(c.secret, query)
	}

	urlStr := c.baseURL + path
	if query != "" {
		urlStr += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, nil)
	if err != nil {
		return fmt.Errorf("Не удалось создать запрос: %w", err)
	}

	if auth {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}

	c.log.WithComponent("binance_rest").WithFields(map[string]interface{}{
		"method": method,
		"path":   path,
	}).Debug("Запрос к API.")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("Не удалось прочитать ответ: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if jsonErr := json.Unmarshal(data, &apiErr); jsonErr == nil && apiErr.Msg != "" {
			return models.Failf(models.KindVenueRejected, "", "Ошибка binance: %s (code=%d)", apiErr.Msg, apiErr.Code)
		}
		return models.Failf(models.KindVenueRejected, "", "Неуспешный статус: %s", resp.Status)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("Не удалось разобрать ответ: %w", err)
		}
	}

	return nil
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return models.NewFailure(models.KindVenueTimeout, "", err)
	}
	return models.NewFailure(models.KindVenueRejected, "", fmt.Errorf("Ошибка запроса: %w", err))
}

func sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
