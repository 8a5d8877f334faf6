package service

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"time"
)

// StringSet is a set of strings (all elements are unique)
type StringSet map[string]struct{}

// Push adds the string to the set if not already exists
func (ss StringSet) Push(s string) {
	ss[s] = struct{}{}
}

// Exists returns true if the string already exists in the Set
func (ss StringSet) Exists(s string) bool {
	_, ok := ss[s]
	return ok
}

// RetryBackoff is the base delay of the exponential backoff of GetBodyRetryReq
var RetryBackoff = time.Second

// GetBodyRetryReq executes the request with N retries in case of temporary errors (network or 5xx).
// The request body is rewound between tries. 4xx responses are returned at once.
func GetBodyRetryReq(req *http.Request, nbRetries int) ([]byte, error) {
	var err error
	client := &http.Client{}
	for i := 0; i < nbRetries+1; i++ {
		if i > 0 {
			// Exponential backoff
			timer := time.NewTimer(time.Duration((1<<i)-1) * RetryBackoff)
			select {
			case <-req.Context().Done():
				timer.Stop()
				return nil, req.Context().Err()
			case <-timer.C:
			}
		}
		if i > 0 && req.GetBody != nil {
			if req.Body, err = req.GetBody(); err != nil {
				return nil, fmt.Errorf("GetBody: %w", err)
			}
		}
		body, retry, e := doRequest(client, req)
		if err = e; err == nil {
			return body, nil
		}
		if !retry || req.Context().Err() != nil {
			return nil, err
		}
	}
	return nil, err
}

// doRequest returns the body of a 200 response, or an error and whether the request is worth a retry
func doRequest(client *http.Client, req *http.Request) ([]byte, bool, error) {
	resp, err := client.Do(req)
	if err != nil {
		var uerr *neturl.Error
		return nil, errors.As(err, &uerr), err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	if resp.StatusCode != http.StatusOK {
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, fmt.Errorf("%s: %s", resp.Status, body)
	}
	return body, false, nil
}
