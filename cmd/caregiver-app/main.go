// Caregiver terminal app: log in with phone + OTP, wait for job offers,
// accept or reject them, mark arrival, run the session and end it.
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
	"sevasetu/services/caregiver"
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
		Role:         models.RoleCaregiver,
		Store:        store,
	})

	machine := caregiver.New(client, store,
		caregiver.WithPollInterval(time.Duration(config.AppConfig.PollIntervalMs)*time.Millisecond),
		caregiver.WithTickInterval(time.Duration(config.AppConfig.SessionTickMs)*time.Millisecond),
	)
	machine.SetOnChange(func() {
		fmt.Print("\n" + caregiver.Render(machine.Snapshot()) + "> ")
	})

	ctx := context.Background()
	in := bufio.NewScanner(os.Stdin)

	if _, ok := store.Get(models.RoleCaregiver); !ok {
		if !login(ctx, client, store, in) {
			return
		}
	}
	if err := machine.Start(ctx); err != nil {
		fmt.Println("Session expired, please log in again.")
		if !login(ctx, client, store, in) {
			return
		}
		if err := machine.Start(ctx); err != nil {
			logger.Sugar().Fatalf("failed to start: %v", err)
		}
	}
	defer machine.Stop()

	fmt.Print(caregiver.Render(machine.Snapshot()) + "> ")
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			fmt.Print("> ")
			continue
		}

		switch fields[0] {
		case "accept", "reject":
			idx := 1
			if len(fields) > 1 {
				if n, err := strconv.Atoi(fields[1]); err == nil {
					idx = n
				}
			}
			offers := machine.Offers()
			if idx < 1 || idx > len(offers) {
				fmt.Println("No such offer.")
				break
			}
			if fields[0] == "accept" {
				machine.Accept(ctx, offers[idx-1])
			} else {
				machine.Reject(ctx, offers[idx-1])
			}
		case "arrived":
			machine.Arrived(ctx)
		case "end":
			machine.EndSession(ctx)
		case "profile":
			profile, err := client.CaregiverProfile(ctx)
			if err != nil {
				printErr(err)
				break
			}
			fmt.Printf("%s  skills=%v  experience=%dy  rating=%.1f  trust=%.0f\n",
				profile.Name, profile.Skills, profile.ExperienceYears,
				profile.RatingAverage, profile.TrustScore)
		case "skills":
			if len(fields) < 2 {
				fmt.Println("usage: skills <skill,skill,...>")
				break
			}
			skills := strings.Split(fields[1], ",")
			if _, err := client.UpdateCaregiverProfile(ctx, gateway.CaregiverUpdate{Skills: &skills}); err != nil {
				printErr(err)
			}
		case "available":
			on := len(fields) > 1 && fields[1] == "on"
			sess, _ := store.Get(models.RoleCaregiver)
			if err := client.SetAvailability(ctx, sess.IdentityID, on); err != nil {
				printErr(err)
			} else {
				fmt.Printf("availability set to %v\n", on)
			}
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
			fmt.Println("commands: accept <n> | reject <n> | arrived | end | profile | skills <a,b> | available on|off | logout | quit")
		}
		fmt.Print("> ")
	}
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
		if err := store.Set(models.RoleCaregiver, sess); err != nil {
			printErr(err)
			continue
		}
		_ = store.SetValue(models.RoleCaregiver, session.KeyPhone, phone)
		_ = store.SetValue(models.RoleCaregiver, session.KeyIdentityID, strconv.FormatInt(sess.IdentityID, 10))
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
