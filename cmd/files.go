package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nyulibraries/ultraviolet-cli/internal/console"
	"github.com/nyulibraries/ultraviolet-cli/internal/domain"
	uverrors "github.com/nyulibraries/ultraviolet-cli/internal/errors"
	"github.com/nyulibraries/ultraviolet-cli/internal/service"
)

var (
	uploadFile      string
	uploadDirectory string
	uploadCollision string
	uploadQuiet     bool
)

var uploadFilesCmd = &cobra.Command{
	Use:   "upload-files PID",
	Short: "Upload files to a draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid := args[0]
		ctx := cmd.Context()

		if uploadFile == "" && uploadDirectory == "" {
			return uverrors.Validationf("Please specify a file or directory to upload using -f or -d.")
		}

		policy, err := service.ParseCollisionPolicy(uploadCollision)
		if err != nil {
			return uverrors.Validationf("%v", err)
		}

		draft, err := apiClient.GetDraft(ctx, pid)
		if err != nil {
			if uverrors.IsKind(err, uverrors.KindNotFound) {
				return uverrors.NotFoundf("PID %s does not exist. Please check input.", pid)
			}
			return err
		}
		console.Successf("Uploading files to Draft: %s...", draftTitle(draft))

		uploads, err := collectUploads()
		if err != nil {
			return err
		}

		names, err := apiClient.ListDraftFiles(ctx, pid)
		if err != nil {
			return err
		}
		existing := make(map[string]domain.StoredObjectRef, len(names))
		for _, name := range names {
			existing[name] = domain.StoredObjectRef{Key: pid + "/" + name}
		}

		store, err := storeFactory.Open(cfg.Locations[cfg.DefaultLocation])
		if err != nil {
			return err
		}
		uploader := service.NewUploadService(cfg.ChunkSize, uploadQuiet, stdinPrompter{})

		var firstErr error
		for _, path := range uploads {
			task, err := service.NewUploadTask(path)
			if err != nil {
				console.Errorf("%v", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			task.KeyPrefix = pid

			name, ref, err := uploader.Upload(ctx, task, store, existing, policy)
			if err != nil {
				console.Errorf("%v", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if err := apiClient.RegisterDraftFile(ctx, pid, name); err != nil {
				console.Errorf("%v", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			existing[name] = ref
			console.Successf("Uploaded %s.", name)
		}

		if firstErr != nil {
			return firstErr
		}
		console.Successf("Operation completed successfully.")
		return nil
	},
}

// collectUploads resolves the -f and -d flags into absolute file paths.
func collectUploads() ([]string, error) {
	var uploads []string
	if uploadFile != "" {
		abs, err := filepath.Abs(uploadFile)
		if err != nil || !fileExists(abs) {
			return nil, uverrors.Validationf("File %s does not exist. Please check input.", uploadFile)
		}
		uploads = append(uploads, abs)
	}
	if uploadDirectory != "" {
		abs, err := filepath.Abs(uploadDirectory)
		if err != nil || !dirExists(abs) {
			return nil, uverrors.Validationf("Directory %s does not exist. Please check input.", uploadDirectory)
		}
		entries, err := os.ReadDir(abs)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				uploads = append(uploads, filepath.Join(abs, entry.Name()))
			}
		}
	}
	return uploads, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func draftTitle(draft domain.RecordDraft) string {
	var metadata struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(draft.Metadata, &metadata); err == nil && metadata.Title != "" {
		return metadata.Title
	}
	return draft.ID
}

// stdinPrompter asks the operator for a replacement name when an upload
// collides with an existing draft file.
type stdinPrompter struct{}

func (stdinPrompter) ReplacementName(target string) (string, error) {
	console.Warnf("%s already exists in draft.", target)
	fmt.Println("Press Enter to replace existing file or type in the new file name:")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func init() {
	uploadFilesCmd.Flags().StringVarP(&uploadFile, "file", "f", "", "File to be uploaded")
	uploadFilesCmd.Flags().StringVarP(&uploadDirectory, "directory", "d", "", "Directory of files to be uploaded")
	uploadFilesCmd.Flags().StringVar(&uploadCollision, "on-collision", "prompt", "Collision policy: fail, overwrite, prompt or rename-to:NAME")
	uploadFilesCmd.Flags().BoolVarP(&uploadQuiet, "quiet", "q", false, "Suppress progress bars")
	rootCmd.AddCommand(uploadFilesCmd)
}
