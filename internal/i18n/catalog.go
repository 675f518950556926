package i18n

// polish maps English message keys to their Polish form.
var polish = map[string]string{
	// create
	"Provide server name:":                              "Podaj nazwę serwera:",
	"Server name is required":                           "Nazwa serwera jest wymagana",
	"Provide Hetzner project (leave blank for default)": "Podaj projekt Hetzner (pozostaw puste, aby użyć domyślnego)",
	"No server types available":                         "Brak dostępnych typów serwerów",
	"Server type %s not found":                          "Nie znaleziono typu serwera: %s",
	"Select server type":                                "Wybierz typ serwera",
	"No operating system images available":              "Brak dostępnych obrazów systemu",
	"Image %s not found":                                "Nie znaleziono obrazu: %s",
	"Select operating system image":                     "Wybierz obraz systemu",
	"Configure DuckDNS?":                                "Skonfigurować DuckDNS?",
	"Provide DuckDNS subdomain:":                        "Podaj subdomenę DuckDNS:",
	"Add a cloud-init script?":                          "Dodać skrypt cloud-init?",
	"Select script runtime":                             "Wybierz środowisko wykonania skryptu",
	"Provide path to the script":                        "Podaj ścieżkę do skryptu",
	"File %s does not exist":                            "Plik %s nie istnieje",
	"Operation summary":                                 "Podsumowanie operacji",
	"Provision server?":                                 "Utworzyć serwer?",
	"Server created successfully: %s (%s)":              "Serwer utworzony pomyślnie: %s (%s)",
	"Server creation failed: %v":                        "Tworzenie serwera nie powiodło się: %v",

	// summary tables
	"Field":         "Pole",
	"Value":         "Wartość",
	"Server name":   "Nazwa serwera",
	"Project":       "Projekt",
	"Server type":   "Typ serwera",
	"Image":         "Obraz",
	"DuckDNS":       "DuckDNS",
	"Cloud-init":    "Cloud-init",
	"SSH key":       "Klucz SSH",
	"None":          "Brak",
	"none":          "brak",
	"Yes – %s":      "Tak – %s",
	"Yes":           "Tak",
	"No":            "Nie",
	"unnamed":       "bez nazwy",
	"Server":        "Serwer",
	"Type":          "Typ",
	"IPv4 address":  "Adres IPv4",
	"Uptime":        "Czas działania",
	"Backup":        "Backup",
	"%.1f h":        "%.1f h",
	"no IPv4":       "brak IPv4",
	"Configuration": "Konfiguracja",

	// delete
	"Deletion confirmation":                                 "Potwierdzenie usunięcia",
	"Continue?":                                             "Kontynuować?",
	"Operation cancelled":                                   "Operacja anulowana",
	"Backup failed":                                         "Backup zakończył się niepowodzeniem",
	"No servers labeled as Ephemeral":                       "Brak serwerów oznaczonych jako Ephemeral",
	"Server %s not found":                                   "Nie znaleziono serwera %s",
	"Select server to delete":                               "Wybierz serwer do usunięcia",
	"S3 configuration incomplete – skipping backup.":        "Konfiguracja S3 niepełna – pomijam backup.",
	"Perform S3 backup?":                                    "Wykonać backup do S3?",
	"Provide remote backup path":                            "Podaj ścieżkę backupu na serwerze",
	"Provide S3 destination prefix (e.g. s3://bucket/path)": "Podaj prefiks docelowy w S3 (np. s3://bucket/path)",
	"Starting backup...":                                    "Rozpoczynam backup danych...",
	"Backup finished: %s":                                   "Backup ukończony: %s",
	"Server %s (%s) deleted successfully.":                  "Serwer %s (%s) został usunięty.",

	// config and cache
	"Configuration file already exists: %s": "Plik konfiguracji już istnieje: %s",
	"Template saved to %s":                  "Szablon zapisany do %s",
	"Removed %d cache files":                "Usunięto plików cache: %d",
	"Hetzner API token":                     "Token API Hetzner",

	"Save the token to the configuration file?": "Zapisać token w pliku konfiguracji?",
}
