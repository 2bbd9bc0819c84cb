// Command client is a terminal chat client: it logs in, keeps a live feed
// open via the reconnecting listener, and sends messages typed as
// "@username text".
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/NatalyaAtyukova/chat-service/internal/client"
	"github.com/NatalyaAtyukova/chat-service/internal/models"
)

type session struct {
	serverURL string
	token     string
	userID    int64
	http      *http.Client
}

func main() {
	serverURL := flag.String("server", "http://127.0.0.1:8080", "chat service base URL")
	username := flag.String("user", "", "username")
	password := flag.String("pass", "", "password")
	register := flag.Bool("register", false, "create the account before logging in")
	flag.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: client -user NAME -pass SECRET [-register] [-server URL]")
		os.Exit(1)
	}

	s := &session{serverURL: strings.TrimRight(*serverURL, "/"), http: &http.Client{}}

	if *register {
		if err := s.createUser(*username, *password); err != nil {
			fmt.Fprintf(os.Stderr, "registration failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := s.login(*username, *password); err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("logged in as %s (id %d)\n", *username, s.userID)

	directory := client.NewDirectory()
	if users, err := s.searchUsers(""); err == nil {
		directory.Update(users)
	}

	listener := client.NewListener(s.serverURL, s.userID, func(n client.Notification) {
		fmt.Printf("%s: %s\n", n.SenderUsername, n.Content)
	}, logger)
	go listener.Run()

	fmt.Println("type '@username message' to send, '/quit' to exit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			listener.Stop()
			<-listener.Done()
			return
		case strings.HasPrefix(line, "@"):
			rest := strings.SplitN(line[1:], " ", 2)
			if len(rest) != 2 {
				fmt.Println("usage: @username message")
				continue
			}
			name, text := rest[0], rest[1]
			id, ok := directory.IDFor(name)
			if !ok {
				// Cache miss: refresh the directory once before giving up.
				if users, err := s.searchUsers(name); err == nil {
					directory.Update(users)
				}
				if id, ok = directory.IDFor(name); !ok {
					fmt.Printf("unknown user %q\n", name)
					continue
				}
			}
			if err := s.sendMessage(id, text); err != nil {
				fmt.Printf("send failed: %v\n", err)
			}
		default:
			fmt.Println("type '@username message' to send, '/quit' to exit")
		}
	}
	listener.Stop()
	<-listener.Done()
}

func (s *session) createUser(username, password string) error {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := s.http.Post(s.serverURL+"/user/create", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

func (s *session) login(username, password string) error {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := s.http.Post(s.serverURL+"/user/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	var lr struct {
		Token  string `json:"token"`
		UserID int64  `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return err
	}
	s.token = lr.Token
	s.userID = lr.UserID
	return nil
}

func (s *session) searchUsers(query string) ([]models.PublicUser, error) {
	resp, err := s.http.Get(s.serverURL + "/user/search?query=" + url.QueryEscape(query))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var users []models.PublicUser
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *session) sendMessage(receiverID int64, content string) error {
	body, _ := json.Marshal(map[string]interface{}{"receiver_id": receiverID, "content": content})
	req, err := http.NewRequest(http.MethodPost, s.serverURL+"/messages/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}
