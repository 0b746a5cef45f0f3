package models

// ClientCredentials are the OAuth client id and secret issued by Battle.net.
type ClientCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// ObjectMeta carries the headers an object is stored with.
type ObjectMeta struct {
	ContentType  string
	CacheControl string
}
