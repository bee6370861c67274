// Civilian terminal app: log in with phone + OTP, request care, pick a
// matched caregiver, track the booking and rate the session afterwards.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"sevasetu/config"
	"sevasetu/gateway"
	"sevasetu/models"
	"sevasetu/services/civilian"
	"sevasetu/session"
	"sevasetu/utils"
)

func main() {
	sessionFile := flag.String("session-file", "", "Override the session file path")
	flag.Parse()

	config.LoadConfig()
	utils.InitializeLogger()
	logger := utils.GetLogger()

	path := config.AppConfig.SessionFile
	if *sessionFile != "" {
		path = *sessionFile
	}
	store, err := session.NewFileStore(path)
	if err != nil {
		logger.Sugar().Fatalf("failed to open session store: %v", err)
	}

	client := gateway.New(gateway.Config{
		AuthURL:      config.AppConfig.AuthAPIURL,
		CaregiverURL: config.AppConfig.CaregiverAPIURL,
		CivilianURL:  config.AppConfig.CivilianAPIURL,
		Role:         models.RoleCivilian,
		Store:        store,
	})

	machine := civilian.New(client, store,
		civilian.WithPollInterval(time.Duration(config.AppConfig.PollIntervalMs)*time.Millisecond),
		civilian.WithTickInterval(time.Duration(config.AppConfig.SessionTickMs)*time.Millisecond),
		civilian.WithMatchRetryDelay(time.Duration(config.AppConfig.MatchRetryDelay)*time.Millisecond),
	)
	machine.SetOnChange(func() {
		fmt.Print("\n" + civilian.Render(machine.Snapshot()) + "> ")
	})

	ctx := context.Background()
	in := bufio.NewScanner(os.Stdin)

	if _, ok := store.Get(models.RoleCivilian); !ok {
		if !login(ctx, client, store, in) {
			return
		}
	}
	if machine.Resume(ctx) {
		fmt.Println("Resumed tracking your booking.")
	}
	defer machine.Stop()

	// Most recent match results, for "confirm <n>".
	var candidates []models.MatchCandidate
	var lastRequest gateway.CareRequest

	fmt.Print(civilian.Render(machine.Snapshot()) + "> ")
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			fmt.Print("> ")
			continue
		}

		switch fields[0] {
		case "request":
			lastRequest = defaultCareRequest(fields[1:])
			id, err := machine.RequestCare(ctx, lastRequest)
			if err != nil {
				printErr(err)
				break
			}
			fmt.Printf("Care request opened, booking #%d. Run 'find' to match caregivers.\n", id)
		case "find":
			if lastRequest.StartTime.IsZero() {
				lastRequest = defaultCareRequest(fields[1:])
			}
			fmt.Println("Finding caregivers... / देखभालकर्ता खोज रहे हैं...")
			candidates, err = machine.FindCaregivers(ctx, lastRequest)
			if err != nil {
				printErr(err)
				break
			}
			if len(candidates) == 0 {
				fmt.Println("No caregivers available right now. / अभी कोई देखभालकर्ता उपलब्ध नहीं।")
				break
			}
			for i, cand := range candidates {
				fmt.Printf("  %d. %s  skills=%v  rating=%.1f  trust=%.0f  match=%.0f  (%s, %.1f%%)\n",
					i+1, cand.Name, cand.Skills, cand.RatingAverage,
					cand.TrustScore, cand.MatchScore, cand.AIReason, cand.AIConfidence)
			}
		case "confirm":
			idx := 1
			if len(fields) > 1 {
				if n, err := strconv.Atoi(fields[1]); err == nil {
					idx = n
				}
			}
			if idx < 1 || idx > len(candidates) {
				fmt.Println("No such candidate; run 'find' first.")
				break
			}
			chosen := candidates[idx-1]
			id, err := machine.ConfirmBooking(ctx, gateway.ConfirmBookingRequest{
				CaregiverID: chosen.CaregiverID,
				StartTime:   lastRequest.StartTime,
				EndTime:     lastRequest.EndTime,
			}, chosen.Name)
			if err != nil {
				printErr(err)
				break
			}
			fmt.Printf("Booking #%d confirmed with %s.\n", id, chosen.Name)
		case "rate":
			if len(fields) < 2 {
				fmt.Println("usage: rate <1-5> [review]")
				break
			}
			stars, _ := strconv.Atoi(fields[1])
			review := strings.Join(fields[2:], " ")
			if err := machine.SubmitRating(ctx, stars, review); err != nil {
				printErr(err)
				break
			}
			fmt.Println("Thank you for your rating. / आपकी रेटिंग के लिए धन्यवाद।")
		case "name":
			if len(fields) < 2 {
				fmt.Println("usage: name <display name>")
				break
			}
			if _, err := client.UpdateCivilianProfile(ctx, strings.Join(fields[1:], " ")); err != nil {
				printErr(err)
			}
		case "safety":
			s, err := client.StartSafetySession(ctx)
			if err != nil {
				printErr(err)
				break
			}
			fmt.Printf("Safety session %s at %s\n", s.SessionID, s.StreamURL)
		case "logout":
			if err := client.Logout(ctx); err != nil {
				printErr(err)
			}
			machine.ForceLogout()
			fmt.Println("Logged out.")
			return
		case "quit", "exit":
			return
		default:
			fmt.Println("commands: request [skills] | find | confirm <n> | rate <1-5> [review] | name <name> | safety | logout | quit")
		}
		fmt.Print("> ")
	}
}

// defaultCareRequest builds a two-hour booking starting in an hour, with the
// given comma-separated skills if any.
func defaultCareRequest(args []string) gateway.CareRequest {
	start := time.Now().Add(time.Hour).Truncate(time.Minute)
	req := gateway.CareRequest{
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
	}
	if len(args) > 0 {
		req.RequiredSkills = strings.Split(args[0], ",")
	}
	return req
}

// login runs the two-step OTP flow until a session is stored or stdin ends.
func login(ctx context.Context, client *gateway.Client, store session.Store, in *bufio.Scanner) bool {
	for {
		fmt.Print("Phone number (10 digits): ")
		if !in.Scan() {
			return false
		}
		phone := strings.TrimSpace(in.Text())

		resp, err := client.RequestOTP(ctx, phone)
		if err != nil {
			printErr(err)
			continue
		}
		fmt.Printf("OTP (dev echo): %s\n", resp.OTP)

		fmt.Print("Enter OTP: ")
		if !in.Scan() {
			return false
		}
		otp := strings.TrimSpace(in.Text())

		sess, err := client.VerifyOTP(ctx, phone, otp)
		if err != nil {
			printErr(err)
			continue
		}
		if err := store.Set(models.RoleCivilian, sess); err != nil {
			printErr(err)
			continue
		}
		_ = store.SetValue(models.RoleCivilian, session.KeyPhone, phone)
		_ = store.SetValue(models.RoleCivilian, session.KeyIdentityID, strconv.FormatInt(sess.IdentityID, 10))
		fmt.Println("Logged in. / लॉग इन हो गया।")
		return true
	}
}

func printErr(err error) {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		fmt.Printf("error (%s): %s\n", apiErr.Kind, apiErr.Message)
		return
	}
	fmt.Println("error:", err)
}
