package accountstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/hatchlabs/devbox-middleware/pkg/account"
)

// AccountDao is a data access object that maps directly to the 'accounts'
// table in PostgreSQL.
type AccountDao struct {
	bun.BaseModel              `bun:"table:accounts,alias:a"`
	ID                         int64     `bun:"id,pk,autoincrement"`
	IdentityID                 string    `bun:"identity_id,unique,notnull,type:varchar(255)"`
	WalletAddress              *string   `bun:"wallet_address,type:varchar(64)"`
	DepositWalletAddress       *string   `bun:"deposit_wallet_address,type:varchar(64)"`
	DepositPrivateKeyEncrypted *string   `bun:"deposit_private_key_encrypted,type:text"`
	Credits                    int64     `bun:"credits,notnull,default:0"`
	CreatedAt                  time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

func toAccountDao(acct *account.Account) *AccountDao {
	dao := &AccountDao{
		ID:         acct.ID,
		IdentityID: acct.IdentityID,
		Credits:    acct.Credits,
	}

	if acct.WalletAddress != "" {
		dao.WalletAddress = &acct.WalletAddress
	}
	if acct.DepositWalletAddress != "" {
		dao.DepositWalletAddress = &acct.DepositWalletAddress
	}
	if acct.DepositPrivateKeyEncrypted != "" {
		dao.DepositPrivateKeyEncrypted = &acct.DepositPrivateKeyEncrypted
	}

	return dao
}

func toAccount(dao *AccountDao) *account.Account {
	acct := &account.Account{
		ID:         dao.ID,
		IdentityID: dao.IdentityID,
		Credits:    dao.Credits,
		CreatedAt:  dao.CreatedAt,
	}

	if dao.WalletAddress != nil {
		acct.WalletAddress = *dao.WalletAddress
	}
	if dao.DepositWalletAddress != nil {
		acct.DepositWalletAddress = *dao.DepositWalletAddress
	}
	if dao.DepositPrivateKeyEncrypted != nil {
		acct.DepositPrivateKeyEncrypted = *dao.DepositPrivateKeyEncrypted
	}

	return acct
}
