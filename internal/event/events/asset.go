package events

import "github.com/dshills/assetbus/internal/event"

// Asset event names.
const (
	// NameAssetSelected is emitted when a user selects an asset in the
	// infinite results panel.
	NameAssetSelected event.Name = "asset-selected"

	// NameAssetDeselected is emitted when a user deselects an asset in the
	// infinite results panel.
	NameAssetDeselected event.Name = "asset-deselected"

	// NamePreviousAsset is emitted when a user steps back in the asset
	// details quick view or modal.
	NamePreviousAsset event.Name = "previous-asset"

	// NameNextAsset is emitted when a user steps forward in the asset
	// details quick view or modal.
	NameNextAsset event.Name = "next-asset"

	// NameDownload is emitted after a user successfully requested an asset
	// download.
	NameDownload event.Name = "download"

	// NameAssetQuickPreview is emitted when a user opens an asset's quick
	// preview.
	NameAssetQuickPreview event.Name = "asset-quick-preview"

	// NameAssetQuickPreviewClose is emitted when a user closes an asset's
	// quick preview.
	NameAssetQuickPreviewClose event.Name = "asset-quick-preview-close"

	// NameAssetDetail is emitted when a user opens an asset's extended
	// details modal.
	NameAssetDetail event.Name = "asset-detail"
)

// AssetRef identifies the asset an interaction was about.
type AssetRef struct {
	// AssetID is the repository ID of the asset.
	AssetID string `json:"assetId"`

	// AssetName is the display name of the asset.
	AssetName string `json:"assetName"`
}

// AssetPreviewClosed is the payload of asset-quick-preview-close.
type AssetPreviewClosed struct {
	// AssetID is the repository ID of the previewed asset.
	AssetID string `json:"assetId"`
}

// Typed asset events.
var (
	AssetSelected          = event.NewKind[AssetRef](NameAssetSelected)
	AssetDeselected        = event.NewKind[AssetRef](NameAssetDeselected)
	PreviousAsset          = event.NewKind[AssetRef](NamePreviousAsset)
	NextAsset              = event.NewKind[AssetRef](NameNextAsset)
	Download               = event.NewKind[AssetRef](NameDownload)
	AssetQuickPreview      = event.NewKind[AssetRef](NameAssetQuickPreview)
	AssetQuickPreviewClose = event.NewKind[AssetPreviewClosed](NameAssetQuickPreviewClose)
	AssetDetail            = event.NewKind[AssetRef](NameAssetDetail)
)
