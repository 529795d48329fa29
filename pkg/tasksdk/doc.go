/*
Package tasksdk provides a client SDK for the taskboard REST API.

# SDKClient vs Session

The package is organized around two main types:

  - SDKClient: public endpoints (health, registration, login, refresh)
  - Session: authenticated task and user operations with automatic token refresh

Create an SDKClient and log in to obtain a Session:

	client := tasksdk.NewSDKClient("https://tasks.example.com")

	user, err := client.Register(ctx, tasksdk.RegisterRequest{...})

	session, err := client.Login(ctx, "alice", "secret1")

	tasks, err := session.ListTasks(ctx, tasksdk.ListTasksOptions{
		FilterField:  "status",
		FilterValues: []string{"to-do", "doing"},
		Sort:         "dueDate",
	})

# Automatic Token Refresh

Login always asks for a refresh token. Session methods call getValidToken(),
which rotates the refresh token 30 seconds before the access token expires.
Refresh tokens are single use, so a Session must not be shared with another
process holding the same refresh token.

# Error Handling

Non-2xx responses are returned as *APIError carrying the HTTP status and the
envelope message:

	_, err := session.GetTask(ctx, 42)
	if tasksdk.IsNotFound(err) {
		// missing, or owned by somebody else
	}
*/
package tasksdk
