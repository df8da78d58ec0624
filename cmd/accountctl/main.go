package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Global settings
	apiURL := "http://localhost:8080"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}
	token := os.Getenv("ACCOUNT_TOKEN")

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "signup":
		err = signupCmd(apiURL, args)
	case "signin":
		err = signinCmd(apiURL, args)
	case "profile":
		err = profileCmd(apiURL, token, args)
	case "update":
		err = updateCmd(apiURL, token, args)
	case "password":
		err = passwordCmd(apiURL, token, args)
	case "forgot":
		err = forgotCmd(apiURL, args)
	case "reset":
		err = resetCmd(apiURL, args)
	case "avatar":
		err = avatarCmd(apiURL, token, args)
	case "delete":
		err = deleteCmd(apiURL, token, args)
	case "smoke":
		err = smokeCmd(apiURL, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`accountctl - Command line client for the account service

USAGE:
  accountctl <command> [options]

COMMANDS:
  signup    Create an account
  signin    Sign in and print the session token
  profile   Show the signed-in user
  update    Change name, email or avatar
  password  Change the password
  forgot    Request a password reset email
  reset     Set a new password with a reset token
  avatar    Upload an image and make it the avatar
  delete    Delete the signed-in account
  smoke     Run the account lifecycle against a server
  help      Show this help message

ENVIRONMENT:
  API_URL        Service URL (default: http://localhost:8080)
  ACCOUNT_TOKEN  Session token for commands that need one

EXAMPLES:
  accountctl signup --name="Ada" --email=ada@example.com --password=secret123
  export ACCOUNT_TOKEN=$(accountctl signin --email=ada@example.com --password=secret123 --quiet)
  accountctl update --name="Ada Lovelace"
  accountctl avatar --file=me.png
  accountctl reset --token=<token from email> --password=newsecret123`)
}

func requireToken(token string) error {
	if token == "" {
		return errors.New("ACCOUNT_TOKEN is not set, sign in first")
	}
	return nil
}

func signupCmd(apiURL string, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	name := fs.String("name", "", "Display name")
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (at least 8 characters)")
	fs.Parse(args)

	user, err := NewAPIClient(apiURL, "").Signup(*name, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Account created: %s <%s> (id %s)\n", user.Name, user.Email, user.ID)
	return nil
}

func signinCmd(apiURL string, args []string) error {
	fs := flag.NewFlagSet("signin", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password")
	quiet := fs.Bool("quiet", false, "Only print the token")
	fs.Parse(args)

	user, token, err := NewAPIClient(apiURL, "").Signin(*email, *password)
	if err != nil {
		return err
	}
	if *quiet {
		fmt.Println(token)
		return nil
	}
	fmt.Printf("Signed in as %s <%s>\n", user.Name, user.Email)
	fmt.Printf("Token: %s\n", token)
	return nil
}

func profileCmd(apiURL, token string, args []string) error {
	if err := requireToken(token); err != nil {
		return err
	}

	user, err := NewAPIClient(apiURL, token).Profile()
	if err != nil {
		return err
	}
	printUser(user)
	return nil
}

func updateCmd(apiURL, token string, args []string) error {
	if err := requireToken(token); err != nil {
		return err
	}

	fs := flag.NewFlagSet("update", flag.ExitOnError)
	name := fs.String("name", "", "New display name")
	email := fs.String("email", "", "New email address")
	avatar := fs.String("avatar", "", "Avatar URL or uploaded key, empty to remove")
	fs.Parse(args)

	// Only flags given on the command line are sent
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	pick := func(flagName string, v *string) *string {
		if set[flagName] {
			return v
		}
		return nil
	}

	user, err := NewAPIClient(apiURL, token).UpdateProfile(pick("name", name), pick("email", email), pick("avatar", avatar))
	if err != nil {
		return err
	}
	printUser(user)
	return nil
}

func passwordCmd(apiURL, token string, args []string) error {
	if err := requireToken(token); err != nil {
		return err
	}

	fs := flag.NewFlagSet("password", flag.ExitOnError)
	current := fs.String("current", "", "Current password")
	next := fs.String("new", "", "New password")
	fs.Parse(args)

	if err := NewAPIClient(apiURL, token).ChangePassword(*current, *next); err != nil {
		return err
	}
	fmt.Println("Password updated")
	return nil
}

func forgotCmd(apiURL string, args []string) error {
	fs := flag.NewFlagSet("forgot", flag.ExitOnError)
	email := fs.String("email", "", "Email address of the account")
	fs.Parse(args)

	message, err := NewAPIClient(apiURL, "").ForgotPassword(*email)
	if err != nil {
		return err
	}
	fmt.Println(message)
	return nil
}

func resetCmd(apiURL string, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	token := fs.String("token", "", "Reset token from the email")
	password := fs.String("password", "", "New password")
	fs.Parse(args)

	user, session, err := NewAPIClient(apiURL, "").ResetPassword(*token, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Password reset for %s <%s>\n", user.Name, user.Email)
	fmt.Printf("Token: %s\n", session)
	return nil
}

func avatarCmd(apiURL, token string, args []string) error {
	if err := requireToken(token); err != nil {
		return err
	}

	fs := flag.NewFlagSet("avatar", flag.ExitOnError)
	file := fs.String("file", "", "Image to upload")
	fs.Parse(args)

	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}

	client := NewAPIClient(apiURL, token)
	upload, err := client.AvatarUploadURL()
	if err != nil {
		return err
	}
	if err := client.UploadAvatar(upload, http.DetectContentType(data), data); err != nil {
		return err
	}

	user, err := client.UpdateProfile(nil, nil, &upload.Key)
	if err != nil {
		return err
	}
	printUser(user)
	return nil
}

func deleteCmd(apiURL, token string, args []string) error {
	if err := requireToken(token); err != nil {
		return err
	}

	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Confirm deletion")
	fs.Parse(args)

	if !*yes {
		return errors.New("refusing to delete without --yes")
	}
	if err := NewAPIClient(apiURL, token).DeleteAccount(); err != nil {
		return err
	}
	fmt.Println("Account deleted")
	return nil
}

// smokeCmd walks a throwaway account through signup, signin, profile
// changes, password change, signout and deletion.
func smokeCmd(apiURL string, args []string) error {
	fs := flag.NewFlagSet("smoke", flag.ExitOnError)
	keep := fs.Bool("keep", false, "Keep the account instead of deleting it")
	fs.Parse(args)

	client := NewAPIClient(apiURL, "")
	email := fmt.Sprintf("smoke_%d@example.com", time.Now().UnixNano()%1000000)
	password := "smokepassword1"

	fmt.Println("=== Account Service: Smoke Test ===")

	step := func(label string, fn func() error) error {
		fmt.Printf("%-22s", label+"... ")
		if err := fn(); err != nil {
			fmt.Println("FAILED")
			return fmt.Errorf("%s: %w", label, err)
		}
		fmt.Println("OK")
		return nil
	}

	steps := []struct {
		label string
		fn    func() error
	}{
		{"Signing up", func() error {
			_, err := client.Signup("Smoke Test", email, password)
			return err
		}},
		{"Signing in", func() error {
			_, _, err := client.Signin(email, password)
			return err
		}},
		{"Reading profile", func() error {
			_, err := client.Profile()
			return err
		}},
		{"Renaming", func() error {
			name := "Smoke Test Renamed"
			_, err := client.UpdateProfile(&name, nil, nil)
			return err
		}},
		{"Changing password", func() error {
			next := password + "x"
			if err := client.ChangePassword(password, next); err != nil {
				return err
			}
			password = next
			return nil
		}},
		{"Checking old password", func() error {
			_, _, err := client.Signin(email, "smokepassword1")
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
				return nil
			}
			return fmt.Errorf("expected 401, got %v", err)
		}},
	}

	for _, s := range steps {
		if err := step(s.label, s.fn); err != nil {
			return err
		}
	}

	if *keep {
		fmt.Printf("\nAccount kept: %s / %s\n", email, password)
		return client.Signout()
	}

	return step("Deleting account", client.DeleteAccount)
}

func printUser(user *User) {
	fmt.Printf("ID:     %s\n", user.ID)
	fmt.Printf("Name:   %s\n", user.Name)
	fmt.Printf("Email:  %s\n", user.Email)
	if user.Avatar != nil {
		fmt.Printf("Avatar: %s\n", user.Avatar.URL)
	}
}
