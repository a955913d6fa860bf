package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/yourusername/camwatch/internal/client"
	"gopkg.in/yaml.v3"
)

// cameraFile is the YAML format for bulk registration:
//
//	cameras:
//	  - id: front
//	    url: http://cam1.local/snapshot.jpg
//	    username: admin
//	    password: secret
type cameraFile struct {
	Cameras []struct {
		ID       string `yaml:"id"`
		URL      string `yaml:"url"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"cameras"`
}

func main() {
	server := flag.String("server", "http://localhost:8080", "camwatch server URL")
	importPath := flag.String("import", "", "register all cameras from a YAML file")
	list := flag.Bool("list", false, "list configured cameras")
	status := flag.Bool("status", false, "print system status")
	refresh := flag.Bool("refresh", false, "force a reachability sweep before printing status")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	api := client.NewAPIClient(*server)

	switch {
	case *importPath != "":
		if err := importCameras(ctx, api, *importPath); err != nil {
			fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
			os.Exit(1)
		}
	case *list:
		if err := listCameras(ctx, api); err != nil {
			fmt.Fprintf(os.Stderr, "list failed: %v\n", err)
			os.Exit(1)
		}
	case *status:
		if err := printStatus(ctx, api, *refresh); err != nil {
			fmt.Fprintf(os.Stderr, "status failed: %v\n", err)
			os.Exit(1)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func importCameras(ctx context.Context, api *client.APIClient, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file cameraFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse camera file: %w", err)
	}

	for _, cam := range file.Cameras {
		if err := api.AddCamera(ctx, cam.ID, cam.URL, cam.Username, cam.Password); err != nil {
			fmt.Printf("failed: %s (%v)\n", cam.ID, err)
			continue
		}
		fmt.Printf("registered: %s\n", cam.ID)
	}

	return nil
}

func listCameras(ctx context.Context, api *client.APIClient) error {
	cameras, err := api.ListCameras(ctx)
	if err != nil {
		return err
	}

	if len(cameras) == 0 {
		fmt.Println("no cameras configured")
		return nil
	}

	for _, cam := range cameras {
		fmt.Printf("%-16s %-8s %-8s %s\n", cam.ID, cam.Source, cam.Status, cam.URL)
	}
	return nil
}

func printStatus(ctx context.Context, api *client.APIClient, refresh bool) error {
	var st *client.StatusInfo
	var err error
	if refresh {
		st, err = api.RefreshStatus(ctx)
	} else {
		st, err = api.Status(ctx)
	}
	if err != nil {
		return err
	}

	fmt.Printf("motion enabled:  %v\n", st.MotionEnabled)
	fmt.Printf("mode:            %s\n", st.Mode)
	fmt.Printf("sensitivity:     %d\n", st.Sensitivity)
	fmt.Printf("cameras:         %d total, %d online\n", st.TotalCameras, st.OnlineCameras)
	fmt.Printf("open streams:    %d\n", st.OpenStreams)
	return nil
}
