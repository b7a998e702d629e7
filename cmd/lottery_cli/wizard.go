package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"
	"github.com/livepeer/go-lottery/common"
	"github.com/livepeer/go-lottery/server"
)

// read reads a single line from stdin, trimming if from spaces.
func (w *wizard) read() string {
	fmt.Fprintf(w.out, "> ")
	text, err := w.in.ReadString('\n')
	if err != nil && err != io.EOF {
		glog.Exitf("Failed to read user input err=%q", err)
	}
	return strings.TrimSpace(text)
}

// readString reads a single line from stdin, trimming if from spaces, enforcing
// non-emptyness.
func (w *wizard) readString() string {
	for {
		if text := w.read(); text != "" {
			return text
		}
	}
}

// readStringAndValidate reads a single line from stdin, trims spaces and
// checks that the string passes a condition defined by the provided validation function
func (w *wizard) readStringAndValidate(validate func(in string) (string, error)) string {
	for {
		validText, err := validate(w.read())
		if err != nil {
			glog.Errorf("Failed to validate input err=%q", err)
			continue
		}
		return validText
	}
}

// readStringYesOrNo reads a single line from stdin, trims spaces and
// checks that the string is either y or n
func (w *wizard) readStringYesOrNo() string {
	return w.readStringAndValidate(func(in string) (string, error) {
		if in != "y" && in != "n" {
			return "", errors.New("Enter y or n")
		}

		return in, nil
	})
}

// readDefaultString reads a single line from stdin, trimming if from spaces. If
// an empty line is entered, the default value is returned.
func (w *wizard) readDefaultString(def string) string {
	if text := w.read(); text != "" {
		return text
	}
	return def
}

func (w *wizard) readAddress() ethcommon.Address {
	for {
		addr, err := common.ParseAddress(w.readString())
		if err != nil {
			glog.Errorf("Invalid input, expected an address err=%q", err)
			continue
		}
		return addr
	}
}

func (w *wizard) readDefaultAddress(def ethcommon.Address) ethcommon.Address {
	for {
		text := w.read()
		if text == "" {
			return def
		}
		addr, err := common.ParseAddress(text)
		if err != nil {
			glog.Errorf("Invalid input, expected an address err=%q", err)
			continue
		}
		return addr
	}
}

// readUint reads a single line from stdin, trimming if from spaces, enforcing it
// to parse into an unsigned integer.
func (w *wizard) readUint() uint64 {
	for {
		val, err := strconv.ParseUint(w.readString(), 10, 64)
		if err != nil {
			glog.Errorf("Invalid input, expected integer err=%q", err)
			continue
		}
		return val
	}
}

func (w *wizard) readBigInt() *big.Int {
	for {
		val, err := common.ParseBigInt(w.readString())
		if err != nil || val.Sign() < 0 {
			glog.Error("Invalid input, expected a non-negative big integer")
			continue
		}
		return val
	}
}

// readRatio reads a percentage such as 12.5% or a ratio scaled by 10^18
func (w *wizard) readRatio() string {
	return w.readStringAndValidate(func(in string) (string, error) {
		if _, err := common.ParseRatio(in); err != nil {
			return "", err
		}
		return in, nil
	})
}

var httpClient = &http.Client{Timeout: common.HTTPTimeout}

func (w *wizard) url(path string) string {
	return fmt.Sprintf("http://%v:%v%v", w.host, w.httpPort, path)
}

// getJSON decodes the response of a GET on path into v
func (w *wizard) getJSON(path string, params url.Values, v interface{}) error {
	u := w.url(path)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	resp, err := httpClient.Get(u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := common.ReadAtMost(resp.Body, common.MaxRequestSize)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return responseError(resp.StatusCode, body)
	}
	return json.Unmarshal(body, v)
}

// post sends params to path and decodes a successful JSON response into v when v is not nil
func (w *wizard) post(path string, params url.Values, v interface{}) error {
	body, status, err := httpPostWithParams(w.url(path), params)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return responseError(status, body)
	}
	if v == nil {
		return nil
	}
	return json.Unmarshal(body, v)
}

// postAndReport posts params to path and prints the outcome
func (w *wizard) postAndReport(path string, params url.Values) {
	body, status, err := httpPostWithParams(w.url(path), params)
	if err != nil {
		glog.Errorf("Error sending request path=%v err=%q", path, err)
		return
	}
	if status < 200 || status >= 300 {
		glog.Error(responseError(status, body))
		return
	}
	fmt.Fprintln(w.out, strings.TrimSpace(string(body)))
}

// responseError turns an error response of the node into an error, using the error code of
// lottery errors when present
func responseError(status int, body []byte) error {
	var errResp server.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Code != "" {
		return fmt.Errorf("%v (%v): %v", errResp.Code, errResp.Class, errResp.Error)
	}
	return fmt.Errorf("request failed status=%d: %v", status, strings.TrimSpace(string(body)))
}

func httpPostWithParams(url string, val url.Values) ([]byte, int, error) {
	body := bytes.NewBufferString(val.Encode())
	req, err := http.NewRequest("POST", url, body)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	result, err := common.ReadAtMost(resp.Body, common.MaxRequestSize)
	if err != nil {
		return nil, 0, err
	}
	return result, resp.StatusCode, nil
}
