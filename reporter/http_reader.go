// Reader is a small client of the http reporter, used by tools and tests.

package reporter

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type HttpReader struct {
	serverIP   string // listen ip
	serverPort string // listen port
}

func NewHttpReader(serverIP string, serverPort string) *HttpReader {
	return &HttpReader{
		serverIP:   serverIP,
		serverPort: serverPort,
	}
}

func (hr *HttpReader) get(path string) (int, string, error) {
	resp, err := http.Get("http://" + hr.serverIP + ":" + hr.serverPort + path)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, string(body), nil
}

func (hr *HttpReader) GetHello() (string, error) {
	_, body, err := hr.get(ROUTE_HELLO)
	return body, err
}

func (hr *HttpReader) GetEscrow(id string) (int, string, error) {
	return hr.get(strings.Replace(ROUTE_ESCROW, ":id", id, 1))
}

func (hr *HttpReader) GetEscrows(status string) (int, string, error) {
	return hr.get(ROUTE_ESCROWS + "?status=" + url.QueryEscape(status))
}

func (hr *HttpReader) GetEscrowEvents(id string) (int, string, error) {
	return hr.get(strings.Replace(ROUTE_ESCROW_EVENTS, ":id", id, 1))
}

func (hr *HttpReader) GetOrderEvents(id string) (int, string, error) {
	return hr.get(strings.Replace(ROUTE_ORDER_EVENTS, ":id", id, 1))
}

func (hr *HttpReader) GetOrder(id string) (int, string, error) {
	return hr.get(strings.Replace(ROUTE_ORDER, ":id", id, 1))
}

func (hr *HttpReader) GetOrderFills(id string) (int, string, error) {
	return hr.get(strings.Replace(ROUTE_ORDER_FILLS, ":id", id, 1))
}

func (hr *HttpReader) GetEvents(after uint64, limit int) (int, string, error) {
	return hr.get(fmt.Sprintf("%s?after=%d&limit=%d", ROUTE_EVENTS, after, limit))
}
