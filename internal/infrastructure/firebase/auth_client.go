package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// RoleClaim is the custom claim the portal sets on staff accounts.
const RoleClaim = "role"

type VerifiedToken struct {
	UID  string
	Role string
}

type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

// VerifyToken checks an ID token and returns its uid together with the role
// claim, which is empty for accounts without one.
func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (*VerifiedToken, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, err
	}

	verified := &VerifiedToken{UID: result.UID}
	if role, ok := result.Claims[RoleClaim].(string); ok {
		verified.Role = role
	}
	return verified, nil
}

type Clients struct {
	Auth      *FirebaseAuthClient
	Firestore *firestore.Client
}

// NewClients builds the auth and Firestore clients. credentialsJSON takes
// precedence over credentialsFile; with neither, application default
// credentials are used.
func NewClients(ctx context.Context, projectID, credentialsJSON, credentialsFile string) (*Clients, error) {
	var opts []option.ClientOption
	switch {
	case credentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	case credentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting auth client: %w", err)
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %w", err)
	}

	return &Clients{
		Auth:      NewFirebaseAuthClient(authClient),
		Firestore: firestoreClient,
	}, nil
}

func (c *Clients) Close() error {
	return c.Firestore.Close()
}
