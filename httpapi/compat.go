package httpapi

// Compat holds the client constants echoed in every successful login
// response. Older game clients refuse a payload missing any of them.
type Compat struct {
	Version         string `env:"VERSION"`
	MapVersion      int    `env:"MAP_VERSION"`
	MailVersion     int    `env:"MAIL_VERSION"`
	SoundVersion    int    `env:"SOUND_VERSION"`
	LanguageVersion int    `env:"LANGUAGE_VERSION"`
	AppID           string `env:"APP_ID"`
	TPID            int    `env:"TPID"`
	CurrencyURL     string `env:"CURRENCY_URL"`
	Language        string `env:"LANGUAGE"`
	Settings        string `env:"SETTINGS"`
}

// DefaultCompat returns the values shipped with the current client build.
func DefaultCompat() Compat {
	return Compat{
		Version:         "1.0.0",
		MapVersion:      1,
		MailVersion:     1,
		SoundVersion:    1,
		LanguageVersion: 1,
		AppID:           "gatekeeper",
		TPID:            0,
		CurrencyURL:     "",
		Language:        "en",
		Settings:        "{}",
	}
}

type loginResponse struct {
	Error           int    `json:"error"`
	UserID          string `json:"userId"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Version         string `json:"version"`
	Token           string `json:"token"`
	MapVersion      int    `json:"mapversion"`
	MailVersion     int    `json:"mailversion"`
	SoundVersion    int    `json:"soundversion"`
	LanguageVersion int    `json:"languageversion"`
	AppID           string `json:"app_id"`
	TPID            int    `json:"tpid"`
	CurrencyURL     string `json:"currency_url"`
	Language        string `json:"language"`
	Settings        string `json:"settings"`
}

func (c Compat) response(userID, username, email, token string) loginResponse {
	return loginResponse{
		Error:           0,
		UserID:          userID,
		Username:        username,
		Email:           email,
		Version:         c.Version,
		Token:           token,
		MapVersion:      c.MapVersion,
		MailVersion:     c.MailVersion,
		SoundVersion:    c.SoundVersion,
		LanguageVersion: c.LanguageVersion,
		AppID:           c.AppID,
		TPID:            c.TPID,
		CurrencyURL:     c.CurrencyURL,
		Language:        c.Language,
		Settings:        c.Settings,
	}
}
