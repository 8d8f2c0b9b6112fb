package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dhanaBhai/unposted/internal/insights"
	"github.com/dhanaBhai/unposted/internal/model"
)

func httpDo(method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	cli := &http.Client{Timeout: 30 * time.Second}
	return cli.Do(req)
}

func unexpectedStatus(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
}

func runList(api string, out io.Writer) error {
	resp, err := http.Get(api + "/api/entries")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return unexpectedStatus(resp)
	}

	var payload struct {
		Entries []model.Entry `json:"entries"`
		Count   int           `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return err
	}

	if payload.Count == 0 {
		fmt.Fprintln(out, "no entries yet")
		return nil
	}
	fmt.Fprintf(out, "%-36s  %-20s  %8s  %s\n", "ID", "CREATED", "DURATION", "TITLE")
	for _, e := range payload.Entries {
		fmt.Fprintf(out, "%-36s  %-20s  %7.0fs  %s\n",
			e.ID, e.CreatedAt.Format("2006-01-02 15:04:05"), e.Duration, e.Title)
	}
	return nil
}

func runShow(api, entryID string, out io.Writer) error {
	resp, err := http.Get(api + "/api/entries/" + entryID)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return unexpectedStatus(resp)
	}

	var entry json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		return err
	}
	pretty, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(pretty))
	return nil
}

func runDelete(api, entryID string, out io.Writer) error {
	resp, err := httpDo(http.MethodDelete, api+"/api/entries/"+entryID, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusNoContent {
		return unexpectedStatus(resp)
	}
	fmt.Fprintf(out, "deleted %s\n", entryID)
	return nil
}

func runWipe(api string, out io.Writer) error {
	resp, err := httpDo(http.MethodDelete, api+"/api/entries", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusNoContent {
		return unexpectedStatus(resp)
	}
	fmt.Fprintln(out, "journal cleared")
	return nil
}

func runStreak(api string, out io.Writer) error {
	resp, err := http.Get(api + "/api/streak")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return unexpectedStatus(resp)
	}

	var payload struct {
		Streak  int `json:"streak"`
		Entries int `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return err
	}
	fmt.Fprintf(out, "current streak: %d day(s) across %d entries\n", payload.Streak, payload.Entries)
	return nil
}

func runInsights(api, entryID string, out io.Writer) error {
	resp, err := httpDo(http.MethodPost, api+"/api/entries/"+entryID+"/insights", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return unexpectedStatus(resp)
	}

	var reflection insights.Reflection
	if err := json.NewDecoder(resp.Body).Decode(&reflection); err != nil {
		return err
	}

	rule := strings.Repeat("-", 42)
	fmt.Fprintf(out, "\n%s\nKEY PEOPLE & EVENTS\n%s\n\n", rule, rule)
	for i, item := range reflection.KeyPeopleEvents {
		fmt.Fprintf(out, "  %d. %s\n", i+1, item)
	}
	fmt.Fprintf(out, "\n%s\nREFLECTION INSIGHTS\n%s\n\n", rule, rule)
	for _, bullet := range reflection.ReflectionBullets {
		fmt.Fprintf(out, "  * %s\n", bullet)
	}
	fmt.Fprintf(out, "\n%s\n", rule)
	return nil
}

func runExport(api, entryID, outPath string, out io.Writer) error {
	resp, err := http.Get(api + "/api/entries/" + entryID + "/audio")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return unexpectedStatus(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, audio, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %d bytes to %s\n", len(audio), outPath)
	return nil
}

func runHealth(api string, out io.Writer) error {
	resp, err := http.Get(api + "/api/health")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return unexpectedStatus(resp)
	}
	_, err = io.Copy(out, resp.Body)
	return err
}
